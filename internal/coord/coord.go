package coord

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region axis
// Axis names one dimension of the coordinate space.
type Axis int

const (
	Serotonin Axis = iota
	Dopamine
	Noradrenaline
)

// Axes lists every axis in canonical order.
var Axes = [3]Axis{Serotonin, Dopamine, Noradrenaline}

func (a Axis) String() string {
	switch a {
	case Serotonin:
		return "serotonin"
	case Dopamine:
		return "dopamine"
	case Noradrenaline:
		return "noradrenaline"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis resolves an axis name.
func ParseAxis(name string) (Axis, error) {
	for _, a := range Axes {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, domain.NewValidationError("axis", fmt.Sprintf("unknown axis %q", name))
}

// #endregion axis

// #region coordinate
const (
	// Min and Max bound every axis.
	Min = -1.0
	Max = 1.0
)

var (
	// MaxNorm is the distance from the baseline to a cube corner.
	MaxNorm = math.Sqrt(3)
	// MaxDistance is the cube diagonal.
	MaxDistance = 2 * math.Sqrt(3)
)

// Coordinate is a point in the three-axis neurochemical-analog space.
// Values are always inside [-1, 1] once built through New or Clamp.
type Coordinate struct {
	Serotonin     float64 `json:"serotonin" yaml:"serotonin"`
	Dopamine      float64 `json:"dopamine" yaml:"dopamine"`
	Noradrenaline float64 `json:"noradrenaline" yaml:"noradrenaline"`
}

// Baseline is the neutral resting point.
var Baseline = Coordinate{}

// New validates and clamps a coordinate.
func New(serotonin, dopamine, noradrenaline float64) (Coordinate, error) {
	if err := checkFinite("coordinate", serotonin, dopamine, noradrenaline); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{serotonin, dopamine, noradrenaline}.Clamp(), nil
}

// FromValues builds a coordinate from canonical-order values.
func FromValues(v [3]float64) (Coordinate, error) {
	return New(v[0], v[1], v[2])
}

// Clamp restricts each axis to [-1, 1]. Idempotent.
func (c Coordinate) Clamp() Coordinate {
	return Coordinate{
		Serotonin:     clamp(c.Serotonin),
		Dopamine:      clamp(c.Dopamine),
		Noradrenaline: clamp(c.Noradrenaline),
	}
}

// InRange reports whether every axis is finite and inside [-1, 1].
func (c Coordinate) InRange() bool {
	for _, v := range c.Array() {
		if math.IsNaN(v) || v < Min || v > Max {
			return false
		}
	}
	return true
}

// Values returns the axes in canonical order.
func (c Coordinate) Values() (serotonin, dopamine, noradrenaline float64) {
	return c.Serotonin, c.Dopamine, c.Noradrenaline
}

// Array returns the axes as an array in canonical order.
func (c Coordinate) Array() [3]float64 {
	return [3]float64{c.Serotonin, c.Dopamine, c.Noradrenaline}
}

// Get returns the value on one axis.
func (c Coordinate) Get(a Axis) float64 {
	return c.Array()[a]
}

// DistanceTo is the Euclidean distance between two coordinates.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	ds := c.Serotonin - other.Serotonin
	dd := c.Dopamine - other.Dopamine
	dn := c.Noradrenaline - other.Noradrenaline
	return math.Sqrt(ds*ds + dd*dd + dn*dn)
}

// Norm is the distance to the baseline.
func (c Coordinate) Norm() float64 {
	return c.DistanceTo(Baseline)
}

// Add applies a delta and clamps the result.
func (c Coordinate) Add(d Delta) Coordinate {
	return Coordinate{
		Serotonin:     c.Serotonin + d.Serotonin,
		Dopamine:      c.Dopamine + d.Dopamine,
		Noradrenaline: c.Noradrenaline + d.Noradrenaline,
	}.Clamp()
}

// Scale multiplies each axis by the matching factor. No clamping is needed
// for factors in [0, 1].
func (c Coordinate) Scale(f [3]float64) Coordinate {
	return Coordinate{
		Serotonin:     c.Serotonin * f[0],
		Dopamine:      c.Dopamine * f[1],
		Noradrenaline: c.Noradrenaline * f[2],
	}
}

// Sub returns c - other as a delta.
func (c Coordinate) Sub(other Coordinate) Delta {
	return Delta{
		Serotonin:     c.Serotonin - other.Serotonin,
		Dopamine:      c.Dopamine - other.Dopamine,
		Noradrenaline: c.Noradrenaline - other.Noradrenaline,
	}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", c.Serotonin, c.Dopamine, c.Noradrenaline)
}

// #endregion coordinate

// #region delta
// Delta is an unclamped displacement produced by a trigger.
type Delta struct {
	Serotonin     float64 `json:"serotonin" yaml:"serotonin"`
	Dopamine      float64 `json:"dopamine" yaml:"dopamine"`
	Noradrenaline float64 `json:"noradrenaline" yaml:"noradrenaline"`
}

// Validate rejects non-finite components.
func (d Delta) Validate() error {
	return checkFinite("delta", d.Serotonin, d.Dopamine, d.Noradrenaline)
}

// Plus sums two deltas.
func (d Delta) Plus(o Delta) Delta {
	return Delta{
		Serotonin:     d.Serotonin + o.Serotonin,
		Dopamine:      d.Dopamine + o.Dopamine,
		Noradrenaline: d.Noradrenaline + o.Noradrenaline,
	}
}

// Norm is the L2 length of the delta.
func (d Delta) Norm() float64 {
	return math.Sqrt(d.Serotonin*d.Serotonin + d.Dopamine*d.Dopamine + d.Noradrenaline*d.Noradrenaline)
}

// IsZero reports whether all components are zero.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Array returns the components in canonical order.
func (d Delta) Array() [3]float64 {
	return [3]float64{d.Serotonin, d.Dopamine, d.Noradrenaline}
}

// #endregion delta

// #region helpers
func clamp(v float64) float64 {
	if v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return v
}

func checkFinite(field string, vals ...float64) error {
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.NewValidationError(field, fmt.Sprintf("%s is not finite (%v)", Axes[i], v))
		}
	}
	return nil
}

// #endregion helpers
