package update

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

func TestDecayZeroElapsedIsIdentity(t *testing.T) {
	reg := DefaultRegulator()
	c := coord.Coordinate{Serotonin: 0.7, Dopamine: -0.4, Noradrenaline: 0.9}
	for _, dt := range []time.Duration{0, -time.Second} {
		if got := reg.Decay(c, dt); got != c {
			t.Fatalf("dt=%v: expected identity, got %v", dt, got)
		}
	}
}

func TestDecayPerAxisRates(t *testing.T) {
	reg := Regulator{Rates: [3]float64{0.1, 0.5, 1.0}, Epsilon: 1e-3}
	c := coord.Coordinate{Serotonin: 1, Dopamine: 1, Noradrenaline: -1}
	got := reg.Decay(c, 2*time.Second)

	want := [3]float64{math.Exp(-0.2), math.Exp(-1.0), -math.Exp(-2.0)}
	for i, v := range got.Array() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Fatalf("axis %s: expected %f, got %f", coord.Axis(i), want[i], v)
		}
	}
}

func TestDecayConvergesMonotonically(t *testing.T) {
	reg := DefaultRegulator()
	c := coord.Coordinate{Serotonin: -0.9, Dopamine: 0.8, Noradrenaline: 1}
	prev := c.Norm()
	converged := false
	for tick := 0; tick < 10000; tick++ {
		c = reg.Decay(c, time.Second)
		n := c.Norm()
		if n >= prev {
			t.Fatalf("tick %d: distance did not decrease (%f -> %f)", tick, prev, n)
		}
		prev = n
		if reg.Converged(c) {
			converged = true
			break
		}
	}
	if !converged {
		t.Fatalf("did not converge within epsilon, norm=%f", prev)
	}
}

func TestZeroRateHoldsAxis(t *testing.T) {
	reg := Regulator{Rates: [3]float64{0, 0.5, 0}, Epsilon: 1e-3}
	if err := reg.Validate(); err != nil {
		t.Fatalf("zero rates should validate: %v", err)
	}
	c := coord.Coordinate{Serotonin: 0.4, Dopamine: 0.4, Noradrenaline: -0.4}
	got := reg.Decay(c, time.Hour)
	if got.Serotonin != 0.4 || got.Noradrenaline != -0.4 {
		t.Fatalf("zero-rate axes should hold, got %+v", got)
	}
	if math.Abs(got.Dopamine) > 1e-12 {
		t.Fatalf("dopamine should have decayed, got %v", got.Dopamine)
	}
	if reg.Converged(got) {
		t.Fatal("held axes keep the point away from baseline")
	}
}

func TestTimeToBaseline(t *testing.T) {
	reg := DefaultRegulator()
	c := coord.Coordinate{Serotonin: 0.5, Dopamine: 0.5, Noradrenaline: 0.5}

	d, ok := reg.TimeToBaseline(c)
	if !ok || d <= 0 {
		t.Fatalf("expected positive estimate, got %v ok=%v", d, ok)
	}
	if !reg.Converged(reg.Decay(c, d+time.Millisecond)) {
		t.Fatalf("not converged after estimated %v", d)
	}

	if d, ok := reg.TimeToBaseline(coord.Baseline); !ok || d != 0 {
		t.Fatalf("baseline: expected 0, got %v ok=%v", d, ok)
	}

	frozen := Regulator{Rates: [3]float64{0, 0.1, 0.1}, Epsilon: 1e-3}
	if _, ok := frozen.TimeToBaseline(c); ok {
		t.Fatal("zero rate on a displaced axis should never converge")
	}
}

func TestUpdateNoDelta(t *testing.T) {
	old := coord.Coordinate{Serotonin: 0.3, Dopamine: 0.2, Noradrenaline: -0.1}
	r := Update(old, coord.Delta{}, 0, DefaultRegulator())
	if r.Next != old || r.Decayed != old {
		t.Fatalf("expected unchanged state, got %+v", r)
	}
	if r.Metrics.DeltaNorm != 0 || r.Metrics.DecayNorm != 0 || r.Metrics.Clamped {
		t.Fatalf("expected zero metrics, got %+v", r.Metrics)
	}
}

func TestUpdateDecaysBeforeAdding(t *testing.T) {
	reg := Regulator{Rates: [3]float64{1, 1, 1}, Epsilon: 1e-3}
	old := coord.Coordinate{Serotonin: 1}
	r := Update(old, coord.Delta{Serotonin: 0.1}, time.Second, reg)

	want := math.Exp(-1) + 0.1
	if math.Abs(r.Next.Serotonin-want) > 1e-12 {
		t.Fatalf("expected %f, got %f", want, r.Next.Serotonin)
	}
	if math.Abs(r.Metrics.DecayNorm-(1-math.Exp(-1))) > 1e-12 {
		t.Fatalf("unexpected decay norm %f", r.Metrics.DecayNorm)
	}
}

func TestUpdateClamps(t *testing.T) {
	old := coord.Coordinate{Serotonin: 0.9, Dopamine: -0.9}
	r := Update(old, coord.Delta{Serotonin: 0.5, Dopamine: -0.5}, 0, DefaultRegulator())
	if r.Next.Serotonin != 1 || r.Next.Dopamine != -1 {
		t.Fatalf("expected clamped corner, got %v", r.Next)
	}
	if !r.Metrics.Clamped {
		t.Fatal("expected clamped flag")
	}
	if !r.Next.InRange() {
		t.Fatal("result out of range")
	}
}

func TestUpdateDeterministic(t *testing.T) {
	old := coord.Coordinate{Serotonin: 0.1, Dopamine: 0.2, Noradrenaline: 0.3}
	d := coord.Delta{Serotonin: 0.4, Dopamine: -0.2, Noradrenaline: 0.1}
	r1 := Update(old, d, 1500*time.Millisecond, DefaultRegulator())
	r2 := Update(old, d, 1500*time.Millisecond, DefaultRegulator())
	if r1.Next != r2.Next {
		t.Fatalf("non-deterministic: %v vs %v", r1.Next, r2.Next)
	}
}

func TestRegulatorValidate(t *testing.T) {
	if err := DefaultRegulator().Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	bad := []Regulator{
		{Rates: [3]float64{-1, 0, 0}, Epsilon: 1e-3},
		{Rates: [3]float64{math.NaN(), 0, 0}, Epsilon: 1e-3},
		{Rates: [3]float64{0.1, 0.1, 0.1}, Epsilon: 0},
	}
	for i, r := range bad {
		if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}
