package trigger

import (
	"fmt"
	"sync/atomic"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region resolver-interface
// Resolver converts a stimulus into a coordinate delta. Implementations must
// accept every Input kind; ResolveOverride covers the override variant for
// resolvers that only care about keys and text.
type Resolver interface {
	Resolve(in Input) (Resolution, error)
}

// Resolution is the outcome of resolving one input.
type Resolution struct {
	Delta      coord.Delta `json:"delta"`
	Matched    []string    `json:"matched,omitempty"`
	Polarity   Polarity    `json:"polarity"`
	Unresolved bool        `json:"unresolved"`
}

// Warning returns the diagnostic for an unresolved input, or nil.
func (r Resolution) Warning(in Input) *domain.UnresolvedTriggerWarning {
	if !r.Unresolved {
		return nil
	}
	return &domain.UnresolvedTriggerWarning{Input: in.String()}
}

// ResolveOverride handles the override variant.
func ResolveOverride(in Input) (Resolution, error) {
	if err := in.Validate(); err != nil {
		return Resolution{}, err
	}
	if in.Kind != KindOverride {
		return Resolution{}, domain.NewValidationError("trigger.kind", fmt.Sprintf("expected override, got %s", in.Kind))
	}
	label := in.Label
	if label == "" {
		label = "override"
	}
	return Resolution{Delta: *in.Delta, Matched: []string{label}, Polarity: polarityOf(*in.Delta)}, nil
}

// #endregion resolver-interface

// #region match-policy
// MatchPolicy decides how several matching entries combine.
type MatchPolicy string

const (
	// PolicySum adds every matching delta: several stimuli in one utterance
	// act cumulatively. This is the default.
	PolicySum MatchPolicy = "sum"
	// PolicyStrongest keeps the match with the largest delta norm.
	PolicyStrongest MatchPolicy = "strongest"
	// PolicyFirst keeps the earliest match in lexicon order.
	PolicyFirst MatchPolicy = "first"
)

// ParsePolicy validates a policy name. Empty means PolicySum.
func ParsePolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", PolicySum:
		return PolicySum, nil
	case PolicyStrongest, PolicyFirst:
		return MatchPolicy(s), nil
	}
	return "", domain.NewValidationError("match_policy", fmt.Sprintf("unknown policy %q", s))
}

// #endregion match-policy

// #region lexicon-resolver
// LexiconResolver matches keys exactly and free text by phrase containment.
// The lexicon can be swapped at runtime (see Watcher); each Resolve call reads
// one consistent lexicon.
type LexiconResolver struct {
	lexicon atomic.Pointer[Lexicon]
	policy  MatchPolicy
}

// NewLexiconResolver creates a resolver. An empty policy means PolicySum.
func NewLexiconResolver(lex *Lexicon, policy MatchPolicy) *LexiconResolver {
	if policy == "" {
		policy = PolicySum
	}
	r := &LexiconResolver{policy: policy}
	r.lexicon.Store(lex)
	return r
}

// Lexicon returns the active lexicon.
func (r *LexiconResolver) Lexicon() *Lexicon { return r.lexicon.Load() }

// Swap installs a new lexicon and returns the previous one.
func (r *LexiconResolver) Swap(lex *Lexicon) *Lexicon { return r.lexicon.Swap(lex) }

// Policy returns the multi-match policy.
func (r *LexiconResolver) Policy() MatchPolicy { return r.policy }

// Resolve implements Resolver. An exact key match wins outright; otherwise
// every entry whose key or synonym occurs in the payload is combined per the
// policy. No match yields a zero delta with Unresolved set, not an error.
func (r *LexiconResolver) Resolve(in Input) (Resolution, error) {
	if err := in.Validate(); err != nil {
		return Resolution{}, err
	}
	if in.Kind == KindOverride {
		return ResolveOverride(in)
	}

	lex := r.lexicon.Load()
	if lex == nil {
		return Resolution{Unresolved: true, Polarity: Neutral}, nil
	}

	if e, ok := lex.Lookup(in.Payload()); ok {
		return Resolution{Delta: e.Delta, Matched: []string{e.Key}, Polarity: e.Polarity}, nil
	}

	hits := lex.matches(in.Payload())
	if len(hits) == 0 {
		return Resolution{Unresolved: true, Polarity: Neutral}, nil
	}
	return combine(lex, hits, r.policy), nil
}

func combine(lex *Lexicon, hits []int, policy MatchPolicy) Resolution {
	switch policy {
	case PolicyFirst:
		e := lex.entries[hits[0]]
		return Resolution{Delta: e.Delta, Matched: []string{e.Key}, Polarity: e.Polarity}
	case PolicyStrongest:
		best := hits[0]
		for _, i := range hits[1:] {
			if lex.entries[i].Delta.Norm() > lex.entries[best].Delta.Norm() {
				best = i
			}
		}
		e := lex.entries[best]
		return Resolution{Delta: e.Delta, Matched: []string{e.Key}, Polarity: e.Polarity}
	}

	var res Resolution
	for n, i := range hits {
		e := lex.entries[i]
		res.Delta = res.Delta.Plus(e.Delta)
		res.Matched = append(res.Matched, e.Key)
		switch {
		case n == 0:
			res.Polarity = e.Polarity
		case res.Polarity != e.Polarity:
			res.Polarity = Mixed
		}
	}
	return res
}

func polarityOf(d coord.Delta) Polarity {
	// serotonin carries valence in the default anchor layout
	switch {
	case d.Serotonin > 0:
		return Positive
	case d.Serotonin < 0:
		return Negative
	}
	return Neutral
}

// #endregion lexicon-resolver
