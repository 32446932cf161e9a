package replay

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/engine"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region fixture-tests

func runFixture(t *testing.T, name string) ([]ReplayResult, ReplaySummary) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	config, err := f.Config.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	steps, err := f.ToSteps()
	if err != nil {
		t.Fatalf("ToSteps: %v", err)
	}
	results, eng, err := Replay(steps, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != len(f.Steps) {
		t.Fatalf("expected %d results, got %d", len(f.Steps), len(results))
	}
	for _, r := range results {
		if r.Mismatch != "" {
			t.Errorf("step %d (%s): %s", r.Index, r.Cause, r.Mismatch)
		}
		if r.EvalResult != nil && !r.EvalResult.Passed {
			t.Errorf("step %d (%s): %s", r.Index, r.Cause, r.EvalResult.Reason)
		}
	}
	return results, Summarize(results, eng)
}

// TestFixture_EmotionalArc is the primary regression: if the lexicon, the
// anchors, or the classifier drift, the arc stops reading sadness, neutral, joy.
func TestFixture_EmotionalArc(t *testing.T) {
	_, s := runFixture(t, "emotional_arc.json")
	if !s.Passed() || s.Applied != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Report.MostCommonPair == nil || s.Report.MostCommonPair.Primary != s.FinalState.Primary {
		t.Fatalf("most common pair should be the final pair, got %+v", s.Report.MostCommonPair)
	}
}

func TestFixture_DecayAndReset(t *testing.T) {
	results, s := runFixture(t, "decay_and_reset.json")
	if s.Resets != 1 || s.Rejected != 1 || s.Applied != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	// reset with the clear policy leaves only the post-reset transition
	if s.Report.Total != 1 {
		t.Fatalf("expected 1 transition after reset, got %d", s.Report.Total)
	}
	want := time.Date(2026, 4, 1, 9, 10, 0, 0, time.UTC)
	if got := results[1].State.Timestamp; !got.Equal(want) {
		t.Fatalf("expected clock at %s, got %s", want, got)
	}
}

func TestToStepsRejectsAmbiguousStep(t *testing.T) {
	in := trigger.Key("praise")
	f := &Fixture{Steps: []FixtureStep{{Line: "!praise", Input: &in}}}
	if _, err := f.ToSteps(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f = &Fixture{Steps: []FixtureStep{{}}}
	if _, err := f.ToSteps(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty step, got %v", err)
	}
}

func TestToReplayConfig(t *testing.T) {
	fc := FixtureConfig{NoDecay: true, MatchPolicy: "strongest", Priority: []string{"neutral", "joy", "sadness", "anger", "fear", "surprise", "disgust"}}
	cfg, err := fc.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if cfg.Regulator.Rates != [3]float64{} {
		t.Fatalf("expected decay disabled, got %v", cfg.Regulator.Rates)
	}
	if cfg.Table == nil || cfg.Table.Priority()[0] != "neutral" {
		t.Fatal("expected priority override")
	}
	if !cfg.Start.Equal(DefaultStart) {
		t.Fatalf("expected default start, got %s", cfg.Start)
	}

	if _, err := (&FixtureConfig{MatchPolicy: "loudest"}).ToReplayConfig(); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestWriteFixtureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	in := trigger.Text("loud bang")
	want := &Fixture{
		Description: "exported",
		Config:      FixtureConfig{Start: DefaultStart},
		Steps:       []FixtureStep{{Input: &in, AdvanceMS: 250, ExpectPrimary: "fear"}},
	}
	if err := WriteFixture(path, want); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if got.Steps[0].Input == nil || *got.Steps[0].Input != in || got.Steps[0].AdvanceMS != 250 {
		t.Fatalf("unexpected step %+v", got.Steps[0])
	}
	if !got.Config.Start.Equal(DefaultStart) {
		t.Fatalf("unexpected start %s", got.Config.Start)
	}
}

func TestFromTransitionsReplaysRecordedSession(t *testing.T) {
	clock := engine.NewManualClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	eng, err := engine.New(engine.WithClock(clock))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	for _, line := range []string{"!criticism", "a loud bang", "=0.1,0.2,-0.3", "!gift"} {
		in, err := trigger.Parse(line)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if _, err := eng.Update(in); err != nil {
			t.Fatalf("Update: %v", err)
		}
		clock.Advance(1500 * time.Millisecond)
	}
	recorded := eng.Transitions()

	reg := eng.Regulator()
	f := FromTransitions("recorded", recorded, &reg)
	if len(f.Steps) != 4 || f.Steps[2].AdvanceMS != 1500 {
		t.Fatalf("unexpected fixture %+v", f.Steps)
	}

	config, err := f.Config.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	steps, err := f.ToSteps()
	if err != nil {
		t.Fatalf("ToSteps: %v", err)
	}
	results, replayed, err := Replay(steps, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if s := Summarize(results, replayed); !s.Passed() {
		t.Fatalf("replay diverged: %+v", results)
	}
	want, got := eng.CurrentState(), replayed.CurrentState()
	if want.Coordinates.DistanceTo(got.Coordinates) > 1e-9 || !want.Timestamp.Equal(got.Timestamp) {
		t.Fatalf("final state %v at %s, recorded %v at %s", got.Coordinates, got.Timestamp, want.Coordinates, want.Timestamp)
	}
}

// #endregion fixture-tests
