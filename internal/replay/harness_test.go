package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

func noDecay() ReplayConfig {
	c := DefaultReplayConfig()
	c.Regulator.Rates = [3]float64{}
	return c
}

func mustReplay(t *testing.T, steps []Step, config ReplayConfig) ([]ReplayResult, ReplaySummary) {
	t.Helper()
	results, eng, err := Replay(steps, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return results, Summarize(results, eng)
}

// 1. Applied path: trigger resolves, eval passes, expectation holds.
func TestReplay_Applied(t *testing.T) {
	results, s := mustReplay(t, []Step{{Line: "!praise", ExpectPrimary: emotion.Joy}}, noDecay())

	r := results[0]
	if r.Action != "applied" || r.Mismatch != "" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.EvalResult == nil || !r.EvalResult.Passed {
		t.Fatal("expected eval to pass")
	}
	if r.Cause != "key:praise" {
		t.Errorf("expected cause key:praise, got %s", r.Cause)
	}
	if !s.Passed() || s.Applied != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

// 2. Expectation mismatch is reported, not fatal.
func TestReplay_Mismatch(t *testing.T) {
	results, s := mustReplay(t, []Step{{Line: "!praise", ExpectPrimary: emotion.Anger}}, noDecay())
	if !strings.Contains(results[0].Mismatch, "expected primary=anger, got joy") {
		t.Fatalf("unexpected mismatch %q", results[0].Mismatch)
	}
	if s.Passed() || s.Mismatches != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

// 3. Rejected trigger leaves the engine untouched.
func TestReplay_Rejected(t *testing.T) {
	steps := []Step{{Line: "=1,2"}, {Line: "!"}}
	results, s := mustReplay(t, steps, noDecay())
	for _, r := range results {
		if r.Action != "rejected" || r.Mismatch == "" {
			t.Fatalf("expected unexpected rejection, got %+v", r)
		}
	}
	if s.FinalState.Coordinates != coord.Baseline || s.Report.Total != 0 {
		t.Fatalf("engine should be untouched, got %+v", s)
	}

	steps[0].ExpectError, steps[1].ExpectError = true, true
	_, s = mustReplay(t, steps, noDecay())
	if !s.Passed() || s.Rejected != 2 {
		t.Fatalf("expected rejections to satisfy expectations, got %+v", s)
	}
}

// 4. Expecting an error that never comes is a mismatch.
func TestReplay_ExpectedErrorMissing(t *testing.T) {
	results, _ := mustReplay(t, []Step{{Line: "!praise", ExpectError: true}}, noDecay())
	if results[0].Mismatch == "" {
		t.Fatal("expected mismatch")
	}
}

// 5. Clock advances between steps drive decay.
func TestReplay_AdvanceDecays(t *testing.T) {
	steps := []Step{
		{Line: "!praise"},
		{Line: "=0,0,0", Advance: 10 * time.Second},
	}
	results, _ := mustReplay(t, steps, DefaultReplayConfig())
	first, second := results[0].State.Coordinates, results[1].State.Coordinates
	if second.Norm() >= first.Norm() {
		t.Fatalf("expected decay toward baseline: %v -> %v", first, second)
	}
	if got, want := results[1].State.Timestamp, DefaultStart.Add(10*time.Second); !got.Equal(want) {
		t.Fatalf("expected clock at %s, got %s", want, got)
	}
}

// 6. Reset restarts the chain; eval does not compare across sessions.
func TestReplay_ResetRestartsChain(t *testing.T) {
	in := trigger.Key("music")
	steps := []Step{{Line: "!insult"}, {Reset: true}, {Input: &in}}
	results, s := mustReplay(t, steps, noDecay())
	if results[1].Action != "reset" || results[1].State.Primary != emotion.Neutral {
		t.Fatalf("unexpected reset result %+v", results[1])
	}
	if results[2].EvalResult == nil || !results[2].EvalResult.Passed {
		t.Fatalf("expected eval to pass after reset, got %+v", results[2].EvalResult)
	}
	if s.Resets != 1 || s.Applied != 2 || !s.Passed() {
		t.Fatalf("unexpected summary %+v", s)
	}
}

// 7. Invalid regulator fails the run up front.
func TestReplay_InvalidConfig(t *testing.T) {
	c := DefaultReplayConfig()
	c.Regulator.Epsilon = 0
	if _, _, err := Replay(nil, c); err == nil {
		t.Fatal("expected error for invalid regulator")
	}
}
