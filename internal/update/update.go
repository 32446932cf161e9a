package update

import (
	"math"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
)

// #region decay
// Decay pulls c toward baseline by axis*exp(-k*dt) per axis. dt <= 0 is the
// identity.
func (r Regulator) Decay(c coord.Coordinate, dt time.Duration) coord.Coordinate {
	if dt <= 0 {
		return c
	}
	secs := dt.Seconds()
	var f [3]float64
	for i, k := range r.Rates {
		f[i] = math.Exp(-k * secs)
	}
	return c.Scale(f)
}

// Converged reports whether c is within Epsilon of baseline.
func (r Regulator) Converged(c coord.Coordinate) bool {
	return c.Norm() <= r.Epsilon
}

// TimeToBaseline estimates how long c needs, with no further stimulus, to
// come within Epsilon of baseline. Each axis needs ln(|v|/eps_axis)/k where
// eps_axis = Epsilon/sqrt(3); the slowest axis dominates. An axis with a zero
// rate and a non-negligible value never converges and yields ok=false.
func (r Regulator) TimeToBaseline(c coord.Coordinate) (time.Duration, bool) {
	if r.Converged(c) {
		return 0, true
	}
	axisEps := r.Epsilon / math.Sqrt(3)
	var worst float64
	for i, v := range c.Array() {
		v = math.Abs(v)
		if v <= axisEps {
			continue
		}
		k := r.Rates[i]
		if k == 0 {
			return 0, false
		}
		if t := math.Log(v/axisEps) / k; t > worst {
			worst = t
		}
	}
	return time.Duration(worst * float64(time.Second)), true
}

// #endregion decay

// #region update-function
// Update is a pure function: decay old by dt, add delta, clamp. It never
// blocks or performs I/O.
func Update(old coord.Coordinate, delta coord.Delta, dt time.Duration, reg Regulator) Result {
	start := time.Now()

	decayed := reg.Decay(old, dt)
	raw := [3]float64{
		decayed.Serotonin + delta.Serotonin,
		decayed.Dopamine + delta.Dopamine,
		decayed.Noradrenaline + delta.Noradrenaline,
	}
	next := decayed.Add(delta)

	clamped := false
	for i, v := range raw {
		if v != next.Array()[i] {
			clamped = true
			break
		}
	}

	return Result{
		Decayed: decayed,
		Next:    next,
		Metrics: Metrics{
			DecayNorm: old.DistanceTo(decayed),
			DeltaNorm: decayed.DistanceTo(next),
			Clamped:   clamped,
			Elapsed:   time.Since(start),
		},
	}
}

// #endregion update-function
