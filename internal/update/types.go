package update

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region regulator
// Regulator holds the homeostatic decay parameters. Rates are per second and
// indexed by coord.Axis.
type Regulator struct {
	Rates   [3]float64 `yaml:"rates" json:"rates"`     // serotonin, dopamine, noradrenaline
	Epsilon float64    `yaml:"epsilon" json:"epsilon"` // convergence radius around baseline
}

// DefaultRegulator returns conservative defaults: serotonin is the slowest
// (mood), noradrenaline the fastest (arousal).
func DefaultRegulator() Regulator {
	return Regulator{
		Rates:   [3]float64{0.02, 0.05, 0.10},
		Epsilon: 1e-3,
	}
}

// Validate rejects negative or non-finite parameters. A zero rate is allowed
// and disables homeostasis on that axis: the value holds until the next
// trigger moves it, and TimeToBaseline reports ok=false.
func (r Regulator) Validate() error {
	for i, k := range r.Rates {
		if math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
			return domain.NewValidationError("decay.rates", fmt.Sprintf("%s rate %v must be finite and >= 0", coord.Axis(i), k))
		}
	}
	if math.IsNaN(r.Epsilon) || math.IsInf(r.Epsilon, 0) || r.Epsilon <= 0 {
		return domain.NewValidationError("decay.epsilon", fmt.Sprintf("%v must be finite and > 0", r.Epsilon))
	}
	return nil
}

// #endregion regulator

// #region metrics
// Metrics captures telemetry from one update cycle.
type Metrics struct {
	DecayNorm float64       `json:"decay_norm"` // distance moved by decay
	DeltaNorm float64       `json:"delta_norm"` // distance moved by the delta after clamping
	Clamped   bool          `json:"clamped"`    // the raw sum left the cube on at least one axis
	Elapsed   time.Duration `json:"elapsed"`
}

// #endregion metrics

// #region update-result
// Result bundles everything returned by Update.
type Result struct {
	Decayed coord.Coordinate `json:"decayed"`
	Next    coord.Coordinate `json:"next"`
	Metrics Metrics          `json:"metrics"`
}

// #endregion update-result
