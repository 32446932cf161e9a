package replay

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/engine"
	"github.com/danielpatrickdp/affect-engine/internal/eval"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
	"github.com/danielpatrickdp/affect-engine/internal/update"
)

// #region types
// Step is one recorded stimulus for replay.
type Step struct {
	Line    string
	Input   *trigger.Input
	Reset   bool
	Advance time.Duration

	ExpectPrimary emotion.CoreEmotion
	ExpectSub     string
	ExpectError   bool
}

// ReplayConfig bundles the engine parameters for a replay run.
type ReplayConfig struct {
	Start      time.Time
	Regulator  update.Regulator
	Resolver   trigger.Resolver
	Table      *emotion.Table
	EvalConfig eval.EvalConfig
	Logger     *zap.Logger
}

// DefaultReplayConfig returns the engine defaults on a fixed clock.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Start:      DefaultStart,
		Regulator:  update.DefaultRegulator(),
		Resolver:   trigger.NewLexiconResolver(trigger.DefaultLexicon(), trigger.PolicySum),
		EvalConfig: eval.DefaultEvalConfig(),
	}
}

// ReplayResult captures the outcome of replaying one step.
type ReplayResult struct {
	Index  int
	Cause  string
	Action string // "applied" | "reset" | "rejected"
	Reason string

	State    emotion.State
	Mismatch string // non-empty when an expectation failed

	// Eval stage (nil unless applied)
	EvalResult *eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps   int
	Applied      int
	Resets       int
	Rejected     int
	Mismatches   int
	EvalFailures int
	FinalState   emotion.State
	Report       report.Report
}

// Passed reports whether every expectation and every eval check held.
func (s ReplaySummary) Passed() bool {
	return s.Mismatches == 0 && s.EvalFailures == 0
}

// #endregion types

// #region replay
// Replay runs steps through a fresh engine on a manual clock: advance the
// clock, apply the trigger or reset, validate the new transition, and compare
// against expectations. The engine is returned for reporting.
func Replay(steps []Step, config ReplayConfig) ([]ReplayResult, *engine.Engine, error) {
	clock := engine.NewManualClock(config.Start)
	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithRegulator(config.Regulator),
	}
	if config.Resolver != nil {
		opts = append(opts, engine.WithResolver(config.Resolver))
	}
	if config.Table != nil {
		opts = append(opts, engine.WithTable(config.Table))
	}
	if config.Logger != nil {
		opts = append(opts, engine.WithLogger(config.Logger))
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("replay engine: %w", err)
	}

	evalInst := eval.NewEvalHarness(eng.Table(), config.EvalConfig)
	results := make([]ReplayResult, 0, len(steps))
	var prev *session.Transition

	for i, step := range steps {
		clock.Advance(step.Advance)

		// 1. Reset
		if step.Reset {
			r := ReplayResult{Index: i, Cause: "reset", Action: "reset"}
			if err := eng.Reset(); err != nil {
				r.Action, r.Reason = "rejected", err.Error()
			}
			r.State = eng.CurrentState()
			prev = nil
			results = append(results, r)
			continue
		}

		// 2. Parse
		in, err := step.input()
		if err != nil {
			results = append(results, rejected(i, step, step.Line, err))
			continue
		}

		// 3. Update
		st, err := eng.Update(in)
		if err != nil {
			results = append(results, rejected(i, step, in.String(), err))
			continue
		}

		// 4. Eval against the record just logged
		log := eng.Transitions()
		last := log[len(log)-1]
		evalResult := evalInst.Run(prev, last)
		prev = &last

		r := ReplayResult{
			Index:      i,
			Cause:      in.String(),
			Action:     "applied",
			Reason:     evalResult.Reason,
			State:      st,
			EvalResult: &evalResult,
		}
		r.Mismatch = step.check(st)
		results = append(results, r)
	}

	return results, eng, nil
}

func rejected(i int, step Step, cause string, err error) ReplayResult {
	r := ReplayResult{Index: i, Cause: cause, Action: "rejected", Reason: err.Error()}
	if !step.ExpectError {
		r.Mismatch = fmt.Sprintf("unexpected error: %v", err)
	}
	return r
}

func (s Step) input() (trigger.Input, error) {
	if s.Input != nil {
		return *s.Input, nil
	}
	return trigger.Parse(s.Line)
}

func (s Step) check(st emotion.State) string {
	switch {
	case s.ExpectError:
		return "expected an error, trigger was applied"
	case s.ExpectPrimary != "" && st.Primary != s.ExpectPrimary:
		return fmt.Sprintf("expected primary=%s, got %s", s.ExpectPrimary, st.Primary)
	case s.ExpectSub != "" && st.SubEmotion != s.ExpectSub:
		return fmt.Sprintf("expected sub=%s, got %s", s.ExpectSub, st.SubEmotion)
	}
	return ""
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, eng *engine.Engine) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		FinalState: eng.CurrentState(),
		Report:     eng.GenerateReport(),
	}
	for _, r := range results {
		switch r.Action {
		case "applied":
			s.Applied++
		case "reset":
			s.Resets++
		case "rejected":
			s.Rejected++
		}
		if r.Mismatch != "" {
			s.Mismatches++
		}
		if r.EvalResult != nil && !r.EvalResult.Passed {
			s.EvalFailures++
		}
	}
	return s
}

// #endregion replay
