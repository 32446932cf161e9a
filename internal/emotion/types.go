package emotion

import (
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
)

// #region core-emotion
// CoreEmotion names one classification anchor.
type CoreEmotion string

const (
	Joy      CoreEmotion = "joy"
	Sadness  CoreEmotion = "sadness"
	Anger    CoreEmotion = "anger"
	Fear     CoreEmotion = "fear"
	Surprise CoreEmotion = "surprise"
	Disgust  CoreEmotion = "disgust"
	Neutral  CoreEmotion = "neutral"
)

// Core binds a core emotion to its reference coordinate.
type Core struct {
	Name      CoreEmotion      `json:"name" yaml:"name"`
	Reference coord.Coordinate `json:"reference" yaml:"reference"`
}

// #endregion core-emotion

// #region sub-emotion
// SubEmotion is a depth-graded variant of one core emotion.
// Depth 0 is surface-level, 1 is deep/internal.
type SubEmotion struct {
	Name   string      `json:"name" yaml:"name"`
	Parent CoreEmotion `json:"parent" yaml:"parent"`
	Depth  float64     `json:"depth" yaml:"depth"`
}

// Band labels the depth partition a sub-emotion falls in.
func (s SubEmotion) Band() string {
	switch {
	case s.Depth < 1.0/3:
		return "surface"
	case s.Depth < 2.0/3:
		return "moderate"
	default:
		return "deep"
	}
}

// #endregion sub-emotion

// #region state
// State is an immutable classified snapshot of the engine.
type State struct {
	Primary     CoreEmotion      `json:"primary"`
	SubEmotion  string           `json:"sub_emotion"`
	Detail      string           `json:"detail,omitempty"`
	Coordinates coord.Coordinate `json:"coordinates"`
	Intensity   float64          `json:"intensity"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Pair returns the (primary, sub-emotion) label pair.
func (s State) Pair() (CoreEmotion, string) {
	return s.Primary, s.SubEmotion
}

// Intensity maps a coordinate's distance from the baseline onto [0, 1]. The
// scale is coord.MaxNorm, the baseline-to-corner distance, so a corner is 1.
func Intensity(c coord.Coordinate) float64 {
	v := c.Norm() / coord.MaxNorm
	if v > 1 {
		return 1
	}
	return v
}

// #endregion state
