package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// EmptyNarrative is the narrative of a report over no transitions.
const EmptyNarrative = "no transitions recorded"

// #region types
// Bucket is one histogram bar.
type Bucket struct {
	Label   string  `json:"label"`
	Parent  string  `json:"parent,omitempty"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// AxisStats summarizes one axis over every post-transition coordinate.
type AxisStats struct {
	Axis string  `json:"axis"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Peak is the transition that pushed one axis furthest from baseline.
type Peak struct {
	Axis         string        `json:"axis"`
	Value        float64       `json:"value"`
	Seq          int           `json:"seq"`
	TransitionID string        `json:"transition_id"`
	State        emotion.State `json:"state"`
}

// Pair is a (primary, sub-emotion) combination and how often it occurred.
type Pair struct {
	Primary emotion.CoreEmotion `json:"primary"`
	Sub     string              `json:"sub"`
	Count   int                 `json:"count"`
}

// Segment is a run of consecutive transitions sharing a primary emotion.
type Segment struct {
	Primary     emotion.CoreEmotion `json:"primary"`
	From        time.Time           `json:"from"`
	To          time.Time           `json:"to"`
	Duration    time.Duration       `json:"duration"`
	Transitions int                 `json:"transitions"`
}

// Report is the computed session summary.
type Report struct {
	Total          int          `json:"total"`
	Unresolved     int          `json:"unresolved"`
	Primary        []Bucket     `json:"primary"`
	Sub            []Bucket     `json:"sub"`
	Axes           [3]AxisStats `json:"axes"`
	Peaks          [3]*Peak     `json:"peaks"`
	MostCommonPair *Pair        `json:"most_common_pair"`
	Trajectory     []Segment    `json:"trajectory"`
	Narrative      string       `json:"narrative"`
}

// #endregion types

// #region reporter
// Reporter aggregates transitions against an emotion table so that every
// table entry gets a histogram bucket.
type Reporter struct {
	table *emotion.Table
}

// NewReporter creates a reporter. A nil table means emotion.DefaultTable.
func NewReporter(table *emotion.Table) *Reporter {
	if table == nil {
		table = emotion.DefaultTable()
	}
	return &Reporter{table: table}
}

// Generate computes the report. It never fails; an empty input yields zeroed
// buckets, nil peaks, and an empty trajectory.
func (r *Reporter) Generate(transitions []session.Transition) Report {
	rep := Report{
		Total:      len(transitions),
		Primary:    r.primaryHistogram(transitions),
		Sub:        r.subHistogram(transitions),
		Axes:       axisStats(transitions),
		Trajectory: trajectory(transitions),
	}
	for _, t := range transitions {
		if t.Unresolved {
			rep.Unresolved++
		}
	}
	if len(transitions) > 0 {
		rep.Peaks = peaks(transitions)
		rep.MostCommonPair = mostCommonPair(transitions)
	}
	rep.Narrative = narrative(rep)
	return rep
}

// #endregion reporter

// #region histograms
func (r *Reporter) primaryHistogram(ts []session.Transition) []Bucket {
	var buckets []Bucket
	index := map[string]int{}
	for _, c := range r.table.Cores() {
		index[string(c.Name)] = len(buckets)
		buckets = append(buckets, Bucket{Label: string(c.Name)})
	}
	for _, t := range ts {
		label := string(t.Next.Primary)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, Bucket{Label: label})
		}
		buckets[i].Count++
	}
	return finish(buckets, len(ts))
}

func (r *Reporter) subHistogram(ts []session.Transition) []Bucket {
	var buckets []Bucket
	index := map[string]int{}
	for _, s := range r.table.SubEmotions() {
		index[s.Name] = len(buckets)
		buckets = append(buckets, Bucket{Label: s.Name, Parent: string(s.Parent)})
	}
	for _, t := range ts {
		label := t.Next.SubEmotion
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, Bucket{Label: label, Parent: string(t.Next.Primary)})
		}
		buckets[i].Count++
	}
	return finish(buckets, len(ts))
}

// finish fills percentages and orders by count, keeping table order for ties.
func finish(buckets []Bucket, total int) []Bucket {
	for i := range buckets {
		if total > 0 {
			buckets[i].Percent = float64(buckets[i].Count) * 100 / float64(total)
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Count > buckets[j].Count })
	return buckets
}

// #endregion histograms

// #region axes
func axisStats(ts []session.Transition) [3]AxisStats {
	var out [3]AxisStats
	for _, a := range coord.Axes {
		out[a].Axis = a.String()
	}
	if len(ts) == 0 {
		return out
	}
	for _, a := range coord.Axes {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, t := range ts {
			v := t.Next.Coordinates.Get(a)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		out[a].Min, out[a].Max, out[a].Mean = lo, hi, sum/float64(len(ts))
	}
	return out
}

// peaks picks, per axis, the transition with the largest absolute resulting
// value. The earliest transition wins ties.
func peaks(ts []session.Transition) [3]*Peak {
	var out [3]*Peak
	for _, a := range coord.Axes {
		best := 0
		for i, t := range ts {
			if math.Abs(t.Next.Coordinates.Get(a)) > math.Abs(ts[best].Next.Coordinates.Get(a)) {
				best = i
			}
		}
		t := ts[best]
		out[a] = &Peak{
			Axis:         a.String(),
			Value:        t.Next.Coordinates.Get(a),
			Seq:          t.Seq,
			TransitionID: t.ID,
			State:        t.Next,
		}
	}
	return out
}

// #endregion axes

// #region pair
// mostCommonPair breaks count ties toward the pair seen most recently.
func mostCommonPair(ts []session.Transition) *Pair {
	type key struct {
		primary emotion.CoreEmotion
		sub     string
	}
	counts := map[key]int{}
	last := map[key]int{}
	for i, t := range ts {
		k := key{t.Next.Primary, t.Next.SubEmotion}
		counts[k]++
		last[k] = i
	}
	var best key
	bestCount, bestLast := -1, -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && last[k] > bestLast) {
			best, bestCount, bestLast = k, c, last[k]
		}
	}
	return &Pair{Primary: best.primary, Sub: best.sub, Count: bestCount}
}

// #endregion pair

// #region trajectory
// trajectory groups runs of equal primary. A segment ends where the next one
// begins; the final segment ends at its own last transition.
func trajectory(ts []session.Transition) []Segment {
	segs := []Segment{}
	for _, t := range ts {
		if n := len(segs); n > 0 && segs[n-1].Primary == t.Next.Primary {
			segs[n-1].To = t.Timestamp
			segs[n-1].Transitions++
			continue
		}
		if n := len(segs); n > 0 {
			segs[n-1].To = t.Timestamp
		}
		segs = append(segs, Segment{Primary: t.Next.Primary, From: t.Timestamp, To: t.Timestamp, Transitions: 1})
	}
	for i := range segs {
		segs[i].Duration = segs[i].To.Sub(segs[i].From)
	}
	return segs
}

func narrative(rep Report) string {
	if rep.Total == 0 {
		return EmptyNarrative
	}
	parts := make([]string, len(rep.Trajectory))
	for i, s := range rep.Trajectory {
		parts[i] = fmt.Sprintf("%s (%s, %d)", s.Primary, s.Duration.Round(time.Millisecond), s.Transitions)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d transitions: %s", rep.Total, strings.Join(parts, " -> "))
	if p := rep.MostCommonPair; p != nil {
		fmt.Fprintf(&b, "; most often %s/%s", p.Primary, p.Sub)
	}
	if rep.Unresolved > 0 {
		fmt.Fprintf(&b, "; %d unresolved", rep.Unresolved)
	}
	return b.String()
}

// #endregion trajectory
