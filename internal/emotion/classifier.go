package emotion

import (
	"math"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
)

// tieTolerance treats distances closer than this as equal so that tie-breaks
// follow the priority order instead of floating-point noise.
const tieTolerance = 1e-12

// #region classifier
// Classifier maps coordinates onto the table. It holds no mutable state.
type Classifier struct {
	table *Table
}

// NewClassifier creates a classifier over the given table.
func NewClassifier(table *Table) *Classifier {
	return &Classifier{table: table}
}

// Table returns the table the classifier reads.
func (c *Classifier) Table() *Table { return c.table }

// Classify returns the nearest core emotion and its best-matching sub-emotion.
func (c *Classifier) Classify(p coord.Coordinate) (CoreEmotion, SubEmotion) {
	core := c.Nearest(p)
	return core, c.SubEmotion(core, p)
}

// Nearest returns the core emotion whose reference is closest to p.
// Ties within tieTolerance go to the core listed earlier in the priority order.
func (c *Classifier) Nearest(p coord.Coordinate) CoreEmotion {
	var best CoreEmotion
	bestDist := math.Inf(1)
	bestRank := math.MaxInt

	for _, core := range c.table.cores {
		d := p.DistanceTo(core.Reference)
		rank := c.table.rank[core.Name]
		switch {
		case d < bestDist-tieTolerance:
			best, bestDist, bestRank = core.Name, d, rank
		case math.Abs(d-bestDist) <= tieTolerance && rank < bestRank:
			best, bestDist, bestRank = core.Name, math.Min(d, bestDist), rank
		}
	}
	return best
}

// NormalizedDepth is the distance from p to the core's reference divided by
// the table's largest anchor separation, clamped to [0, 1].
func (c *Classifier) NormalizedDepth(core CoreEmotion, p coord.Coordinate) float64 {
	ref, ok := c.table.refs[core]
	if !ok {
		return 0
	}
	nd := p.DistanceTo(ref) / c.table.maxRefDist
	if nd > 1 {
		return 1
	}
	return nd
}

// SubEmotion picks the sub-emotion of core whose depth is closest to the
// normalized depth of p. Ties go to the sub-emotion declared first.
func (c *Classifier) SubEmotion(core CoreEmotion, p coord.Coordinate) SubEmotion {
	nd := c.NormalizedDepth(core, p)
	candidates := c.table.byParent[core]

	var best SubEmotion
	bestDiff := math.Inf(1)
	for _, s := range candidates {
		diff := math.Abs(s.Depth - nd)
		if diff < bestDiff-tieTolerance {
			best, bestDiff = s, diff
		}
	}
	return best
}

// State builds a classified snapshot for p.
func (c *Classifier) State(p coord.Coordinate, ts time.Time, detail string) State {
	core, sub := c.Classify(p)
	return State{
		Primary:     core,
		SubEmotion:  sub.Name,
		Detail:      detail,
		Coordinates: p,
		Intensity:   Intensity(p),
		Timestamp:   ts,
	}
}

// #endregion classifier
