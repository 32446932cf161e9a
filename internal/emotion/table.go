package emotion

import (
	"fmt"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region table
// Table is the immutable core-emotion configuration: anchors, sub-emotions,
// and the tie-break priority. Build it once at engine construction.
type Table struct {
	cores    []Core
	subs     []SubEmotion
	priority []CoreEmotion

	rank       map[CoreEmotion]int
	byParent   map[CoreEmotion][]SubEmotion
	refs       map[CoreEmotion]coord.Coordinate
	maxRefDist float64
}

// TableSpec is the serializable form of a table (config files, snapshots).
type TableSpec struct {
	Cores       []Core        `json:"cores" yaml:"cores"`
	SubEmotions []SubEmotion  `json:"sub_emotions" yaml:"sub_emotions"`
	Priority    []CoreEmotion `json:"priority" yaml:"priority"`
}

// NewTable validates and indexes a table. Priority must list every core
// exactly once; earlier entries win distance ties.
func NewTable(cores []Core, subs []SubEmotion, priority []CoreEmotion) (*Table, error) {
	if len(cores) == 0 {
		return nil, domain.NewValidationError("cores", "at least one core emotion is required")
	}

	t := &Table{
		cores:    append([]Core(nil), cores...),
		subs:     append([]SubEmotion(nil), subs...),
		priority: append([]CoreEmotion(nil), priority...),
		rank:     make(map[CoreEmotion]int, len(cores)),
		byParent: make(map[CoreEmotion][]SubEmotion, len(cores)),
		refs:     make(map[CoreEmotion]coord.Coordinate, len(cores)),
	}

	for _, c := range cores {
		if c.Name == "" {
			return nil, domain.NewValidationError("cores", "core emotion name is empty")
		}
		if _, dup := t.refs[c.Name]; dup {
			return nil, domain.NewValidationError("cores", fmt.Sprintf("duplicate core emotion %q", c.Name))
		}
		s, d, n := c.Reference.Values()
		ref, err := coord.New(s, d, n)
		if err != nil {
			return nil, fmt.Errorf("core %s: %w", c.Name, err)
		}
		if ref != c.Reference {
			return nil, domain.NewValidationError("cores", fmt.Sprintf("core %s reference %v outside [-1, 1]", c.Name, c.Reference))
		}
		t.refs[c.Name] = ref
	}

	if len(priority) != len(cores) {
		return nil, domain.NewValidationError("priority", fmt.Sprintf("expected %d entries, got %d", len(cores), len(priority)))
	}
	for i, p := range priority {
		if _, ok := t.refs[p]; !ok {
			return nil, domain.NewValidationError("priority", fmt.Sprintf("unknown core emotion %q", p))
		}
		if _, dup := t.rank[p]; dup {
			return nil, domain.NewValidationError("priority", fmt.Sprintf("duplicate entry %q", p))
		}
		t.rank[p] = i
	}

	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		if s.Name == "" {
			return nil, domain.NewValidationError("sub_emotions", "sub-emotion name is empty")
		}
		if seen[s.Name] {
			return nil, domain.NewValidationError("sub_emotions", fmt.Sprintf("duplicate sub-emotion %q", s.Name))
		}
		seen[s.Name] = true
		if _, ok := t.refs[s.Parent]; !ok {
			return nil, domain.NewValidationError("sub_emotions", fmt.Sprintf("sub-emotion %q has unknown parent %q", s.Name, s.Parent))
		}
		if !(s.Depth >= 0 && s.Depth <= 1) {
			return nil, domain.NewValidationError("sub_emotions", fmt.Sprintf("sub-emotion %q depth %v outside [0, 1]", s.Name, s.Depth))
		}
		t.byParent[s.Parent] = append(t.byParent[s.Parent], s)
	}
	for _, c := range cores {
		if len(t.byParent[c.Name]) == 0 {
			return nil, domain.NewValidationError("sub_emotions", fmt.Sprintf("core %q has no sub-emotions", c.Name))
		}
	}

	for i := range t.cores {
		for j := i + 1; j < len(t.cores); j++ {
			if d := t.cores[i].Reference.DistanceTo(t.cores[j].Reference); d > t.maxRefDist {
				t.maxRefDist = d
			}
		}
	}
	if t.maxRefDist == 0 {
		// single anchor: normalise against the cube diagonal instead
		t.maxRefDist = coord.MaxDistance
	}

	return t, nil
}

// FromSpec builds a table from its serializable form.
func FromSpec(spec TableSpec) (*Table, error) {
	return NewTable(spec.Cores, spec.SubEmotions, spec.Priority)
}

// Spec returns the serializable form.
func (t *Table) Spec() TableSpec {
	return TableSpec{
		Cores:       t.Cores(),
		SubEmotions: t.SubEmotions(),
		Priority:    t.Priority(),
	}
}

// WithPriority returns a copy of the table with a different tie-break order.
func (t *Table) WithPriority(priority []CoreEmotion) (*Table, error) {
	return NewTable(t.cores, t.subs, priority)
}

// Cores returns the anchors in declaration order.
func (t *Table) Cores() []Core { return append([]Core(nil), t.cores...) }

// SubEmotions returns every sub-emotion in declaration order.
func (t *Table) SubEmotions() []SubEmotion { return append([]SubEmotion(nil), t.subs...) }

// Priority returns the tie-break order.
func (t *Table) Priority() []CoreEmotion { return append([]CoreEmotion(nil), t.priority...) }

// Reference returns the anchor coordinate for a core emotion.
func (t *Table) Reference(e CoreEmotion) (coord.Coordinate, bool) {
	c, ok := t.refs[e]
	return c, ok
}

// SubEmotionsOf returns the sub-emotions of one parent in declaration order.
func (t *Table) SubEmotionsOf(e CoreEmotion) []SubEmotion {
	return append([]SubEmotion(nil), t.byParent[e]...)
}

// MaxReferenceDistance is the largest pairwise distance among anchors.
func (t *Table) MaxReferenceDistance() float64 { return t.maxRefDist }

// #endregion table

// #region default-table
// DefaultTable returns the built-in seven-anchor table. Anchors sit near the
// corners of the cube the way monoamine models place them; neutral marks the
// resting baseline.
func DefaultTable() *Table {
	t, err := FromSpec(DefaultSpec())
	if err != nil {
		panic(fmt.Sprintf("default emotion table invalid: %v", err))
	}
	return t
}

// DefaultSpec returns the serializable form of DefaultTable.
func DefaultSpec() TableSpec {
	return TableSpec{
		Cores: []Core{
			{Joy, coord.Coordinate{Serotonin: 0.8, Dopamine: 0.8, Noradrenaline: -0.3}},
			{Sadness, coord.Coordinate{Serotonin: -0.8, Dopamine: -0.8, Noradrenaline: -0.2}},
			{Anger, coord.Coordinate{Serotonin: -0.7, Dopamine: 0.6, Noradrenaline: 0.8}},
			{Fear, coord.Coordinate{Serotonin: -0.8, Dopamine: 0.5, Noradrenaline: -0.6}},
			{Surprise, coord.Coordinate{Serotonin: 0.6, Dopamine: -0.4, Noradrenaline: 0.8}},
			{Disgust, coord.Coordinate{Serotonin: 0.6, Dopamine: -0.7, Noradrenaline: -0.6}},
			{Neutral, coord.Coordinate{}},
		},
		SubEmotions: []SubEmotion{
			{"amusement", Joy, 0.15}, {"delight", Joy, 0.5}, {"contentment", Joy, 0.85},
			{"disappointment", Sadness, 0.15}, {"loneliness", Sadness, 0.5}, {"grief", Sadness, 0.85},
			{"irritation", Anger, 0.15}, {"frustration", Anger, 0.5}, {"resentment", Anger, 0.85},
			{"nervousness", Fear, 0.15}, {"anxiety", Fear, 0.5}, {"dread", Fear, 0.85},
			{"startle", Surprise, 0.15}, {"amazement", Surprise, 0.5}, {"wonder", Surprise, 0.85},
			{"distaste", Disgust, 0.15}, {"aversion", Disgust, 0.5}, {"contempt", Disgust, 0.85},
			{"attentive", Neutral, 0.15}, {"calm", Neutral, 0.5}, {"serene", Neutral, 0.85},
		},
		Priority: []CoreEmotion{Joy, Sadness, Anger, Fear, Surprise, Disgust, Neutral},
	}
}

// #endregion default-table
