package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
	"github.com/danielpatrickdp/affect-engine/internal/update"
)

// DefaultStart is the clock origin for fixtures that do not set one.
var DefaultStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Steps       []FixtureStep `json:"steps"`
}

// FixtureConfig selects the engine parameters for a replay run.
type FixtureConfig struct {
	Start       time.Time         `json:"start,omitzero"`
	NoDecay     bool              `json:"no_decay,omitempty"`
	Decay       *update.Regulator `json:"decay,omitempty"`
	MatchPolicy string            `json:"match_policy,omitempty"`
	Priority    []string          `json:"priority,omitempty"`
}

// FixtureStep is one trigger (or reset) with optional expectations. Line uses
// the REPL syntax; Input is the structured form written by fixture-export.
type FixtureStep struct {
	Line      string         `json:"line,omitempty"`
	Input     *trigger.Input `json:"input,omitempty"`
	Reset     bool           `json:"reset,omitempty"`
	AdvanceMS float64        `json:"advance_ms,omitempty"`

	ExpectPrimary string `json:"expect_primary,omitempty"`
	ExpectSub     string `json:"expect_sub,omitempty"`
	ExpectError   bool   `json:"expect_error,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToStep converts a FixtureStep to a domain Step.
func (fs *FixtureStep) ToStep() Step {
	s := Step{
		Line:          fs.Line,
		Reset:         fs.Reset,
		Advance:       time.Duration(math.Round(fs.AdvanceMS * float64(time.Millisecond))),
		ExpectPrimary: emotion.CoreEmotion(fs.ExpectPrimary),
		ExpectSub:     fs.ExpectSub,
		ExpectError:   fs.ExpectError,
	}
	if fs.Input != nil {
		in := *fs.Input
		s.Input = &in
	}
	return s
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() (ReplayConfig, error) {
	cfg := DefaultReplayConfig()
	if !fc.Start.IsZero() {
		cfg.Start = fc.Start
	}
	switch {
	case fc.NoDecay:
		cfg.Regulator.Rates = [3]float64{}
	case fc.Decay != nil:
		cfg.Regulator = *fc.Decay
	}
	if err := cfg.Regulator.Validate(); err != nil {
		return ReplayConfig{}, err
	}

	policy := trigger.PolicySum
	if fc.MatchPolicy != "" {
		p, err := trigger.ParsePolicy(fc.MatchPolicy)
		if err != nil {
			return ReplayConfig{}, err
		}
		policy = p
	}
	cfg.Resolver = trigger.NewLexiconResolver(trigger.DefaultLexicon(), policy)

	if len(fc.Priority) > 0 {
		order := make([]emotion.CoreEmotion, len(fc.Priority))
		for i, p := range fc.Priority {
			order[i] = emotion.CoreEmotion(p)
		}
		t, err := emotion.DefaultTable().WithPriority(order)
		if err != nil {
			return ReplayConfig{}, fmt.Errorf("fixture priority: %w", err)
		}
		cfg.Table = t
	}
	return cfg, nil
}

// ToSteps converts every fixture step, rejecting steps that are not exactly
// one of a line, an input or a reset.
func (f *Fixture) ToSteps() ([]Step, error) {
	steps := make([]Step, len(f.Steps))
	for i := range f.Steps {
		fs := &f.Steps[i]
		set := 0
		for _, b := range []bool{fs.Line != "", fs.Input != nil, fs.Reset} {
			if b {
				set++
			}
		}
		if set != 1 {
			return nil, domain.NewValidationError(fmt.Sprintf("steps[%d]", i), "exactly one of line, input or reset is required")
		}
		steps[i] = fs.ToStep()
	}
	return steps, nil
}

// #endregion fixture-loader

// #region fixture-export

// FromTransitions turns a recorded session into a fixture whose steps replay
// the same causes with the same spacing and expect the same labels. reg is
// recorded as the fixture's decay; nil keeps the replay default.
func FromTransitions(description string, ts []session.Transition, reg *update.Regulator) *Fixture {
	f := &Fixture{Description: description, Steps: make([]FixtureStep, 0, len(ts))}
	if reg != nil {
		r := *reg
		f.Config.Decay = &r
	}
	if len(ts) == 0 {
		return f
	}
	f.Config.Start = ts[0].Previous.Timestamp
	last := f.Config.Start
	for _, t := range ts {
		in := t.Cause
		if in.Delta != nil {
			d := *in.Delta
			in.Delta = &d
		}
		f.Steps = append(f.Steps, FixtureStep{
			Input:         &in,
			AdvanceMS:     float64(t.Timestamp.Sub(last)) / float64(time.Millisecond),
			ExpectPrimary: string(t.Next.Primary),
			ExpectSub:     t.Next.SubEmotion,
		})
		last = t.Timestamp
	}
	return f
}

// #endregion fixture-export
