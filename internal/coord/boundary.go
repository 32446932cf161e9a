package coord

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// Conversions between the engine's [-1, 1] axes and the [0, 1] levels used by
// display and actuation collaborators. Nothing inside the engine calls these.

// ToUnit maps a clamped axis value onto [0, 1].
func ToUnit(v float64) float64 {
	return (clamp(v) + 1) / 2
}

// FromUnit maps a [0, 1] level back onto [-1, 1].
func FromUnit(u float64) (float64, error) {
	if math.IsNaN(u) || math.IsInf(u, 0) {
		return 0, domain.NewValidationError("level", "not finite")
	}
	if u < 0 || u > 1 {
		return 0, domain.NewValidationError("level", fmt.Sprintf("%v outside [0, 1]", u))
	}
	return 2*u - 1, nil
}

// Unit returns the coordinate as [0, 1] levels in canonical order.
func (c Coordinate) Unit() [3]float64 {
	return [3]float64{ToUnit(c.Serotonin), ToUnit(c.Dopamine), ToUnit(c.Noradrenaline)}
}

// FromUnitLevels builds a coordinate from [0, 1] levels.
func FromUnitLevels(levels [3]float64) (Coordinate, error) {
	var v [3]float64
	for i, u := range levels {
		x, err := FromUnit(u)
		if err != nil {
			return Coordinate{}, fmt.Errorf("%s: %w", Axes[i], err)
		}
		v[i] = x
	}
	return FromValues(v)
}
