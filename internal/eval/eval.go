package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// #region eval-harness
// EvalHarness re-derives what a transition claims and checks it against the
// engine's guarantees. It never mutates anything.
type EvalHarness struct {
	config     EvalConfig
	classifier *emotion.Classifier
}

// NewEvalHarness creates a harness classifying against table. A nil table
// means the default table.
func NewEvalHarness(table *emotion.Table, config EvalConfig) *EvalHarness {
	if table == nil {
		table = emotion.DefaultTable()
	}
	return &EvalHarness{config: config, classifier: emotion.NewClassifier(table)}
}

// Run validates t. prev is the transition logged immediately before t, or
// nil for the first one in a session.
func (h *EvalHarness) Run(prev *session.Transition, t session.Transition) EvalResult {
	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Every axis inside [-1, 1]
	next := t.Next.Coordinates
	worst := math.Max(math.Abs(next.Serotonin), math.Max(math.Abs(next.Dopamine), math.Abs(next.Noradrenaline)))
	check("range", worst, next.InRange(), fmt.Sprintf("coordinate %s outside [-1, 1]", next))

	// 2. Intensity matches distance from baseline
	want := emotion.Intensity(next)
	drift := math.Abs(t.Next.Intensity - want)
	check("intensity", t.Next.Intensity, drift <= h.config.Tolerance && t.Next.Intensity >= 0 && t.Next.Intensity <= 1,
		fmt.Sprintf("intensity %.6f, expected %.6f", t.Next.Intensity, want))

	// 3. Classification is reproducible
	core, sub := h.classifier.Classify(next)
	check("classification", 0, core == t.Next.Primary && sub.Name == t.Next.SubEmotion,
		fmt.Sprintf("labelled %s/%s, classifies as %s/%s", t.Next.Primary, t.Next.SubEmotion, core, sub.Name))

	// 4. Record and state agree on the time
	check("stamp", 0, t.Next.Timestamp.Equal(t.Timestamp), "state timestamp differs from record timestamp")

	if prev != nil {
		// 5. Strictly increasing timestamps
		gap := t.Timestamp.Sub(prev.Timestamp)
		check("monotonic", gap.Seconds(), gap > 0,
			fmt.Sprintf("timestamp %s not after %s", t.Timestamp, prev.Timestamp))

		// 6. Each record starts where the previous one ended
		moved := t.Previous.Coordinates.DistanceTo(prev.Next.Coordinates)
		check("chain", moved, moved <= h.config.Tolerance && t.Seq == prev.Seq+1,
			fmt.Sprintf("seq %d does not continue seq %d", t.Seq, prev.Seq))
	}

	reason := "all checks passed"
	if len(failReasons) > 0 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Seq:     t.Seq,
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// RunAll validates a session in order and returns one result per transition.
func (h *EvalHarness) RunAll(ts []session.Transition) []EvalResult {
	out := make([]EvalResult, 0, len(ts))
	for i := range ts {
		var prev *session.Transition
		if i > 0 {
			prev = &ts[i-1]
		}
		out = append(out, h.Run(prev, ts[i]))
	}
	return out
}

// FirstFailure returns the first failing result, if any.
func FirstFailure(results []EvalResult) (EvalResult, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return EvalResult{}, false
}

// #endregion eval-harness
