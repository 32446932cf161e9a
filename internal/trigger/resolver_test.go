package trigger

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region helpers
func testLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lex, err := NewLexicon([]Entry{
		{Key: "praise", Synonyms: []string{"well done", "good job"}, Delta: coord.Delta{Serotonin: 0.6, Dopamine: 0.6, Noradrenaline: -0.2}, Polarity: Positive},
		{Key: "loud_noise", Synonyms: []string{"bang"}, Delta: coord.Delta{Serotonin: 0.3, Dopamine: -0.3, Noradrenaline: 0.7}, Polarity: Neutral},
		{Key: "insult", Synonyms: []string{"stupid", "the"}, Delta: coord.Delta{Serotonin: -0.5, Dopamine: 0.4, Noradrenaline: 0.6}, Polarity: Negative},
	})
	if err != nil {
		t.Fatalf("NewLexicon: %v", err)
	}
	return lex
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

// #endregion helpers

// #region exact-match-tests
func TestResolveExactKey(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Key("praise"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Unresolved {
		t.Fatal("expected resolved")
	}
	if res.Delta != (coord.Delta{Serotonin: 0.6, Dopamine: 0.6, Noradrenaline: -0.2}) {
		t.Fatalf("unexpected delta %+v", res.Delta)
	}
	if len(res.Matched) != 1 || res.Matched[0] != "praise" {
		t.Fatalf("unexpected matched %v", res.Matched)
	}
	if res.Polarity != Positive {
		t.Fatalf("expected positive, got %s", res.Polarity)
	}
}

func TestResolveKeyIsCaseInsensitive(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	for _, k := range []string{"PRAISE", "Loud Noise", "loud-noise", "loud_noise"} {
		res, err := r.Resolve(Key(k))
		if err != nil || res.Unresolved {
			t.Fatalf("key %q: unresolved (err=%v)", k, err)
		}
	}
}

func TestResolveTextEqualToKeyIsExact(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Text("Praise"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Matched) != 1 || res.Matched[0] != "praise" {
		t.Fatalf("expected exact praise match, got %v", res.Matched)
	}
}

// #endregion exact-match-tests

// #region synonym-tests
func TestResolveSynonymContainment(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Text("Wow, WELL DONE today!"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Unresolved || res.Matched[0] != "praise" {
		t.Fatalf("expected praise, got %+v", res)
	}
}

func TestResolveRespectsWordBoundaries(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Text("the bangle is shiny"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Unresolved {
		t.Fatalf("bangle should not match bang: %+v", res)
	}
}

func TestStopwordSynonymIgnored(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Text("the weather"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Unresolved {
		t.Fatalf("stopword synonym matched: %+v", res)
	}
}

func TestResolveKeyFallsBackToSynonyms(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, err := r.Resolve(Key("good job"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Unresolved || res.Matched[0] != "praise" {
		t.Fatalf("expected praise via synonym, got %+v", res)
	}
}

// #endregion synonym-tests

// #region policy-tests
func TestMultiMatchPolicies(t *testing.T) {
	text := Text("well done, but a loud bang and that was stupid")

	sum, err := NewLexiconResolver(testLexicon(t), PolicySum).Resolve(text)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if len(sum.Matched) != 3 {
		t.Fatalf("expected 3 matches, got %v", sum.Matched)
	}
	if !near(sum.Delta.Serotonin, 0.4) || !near(sum.Delta.Dopamine, 0.7) || !near(sum.Delta.Noradrenaline, 1.1) {
		t.Fatalf("unexpected summed delta %+v", sum.Delta)
	}
	if sum.Polarity != Mixed {
		t.Fatalf("expected mixed polarity, got %s", sum.Polarity)
	}

	first, _ := NewLexiconResolver(testLexicon(t), PolicyFirst).Resolve(text)
	if len(first.Matched) != 1 || first.Matched[0] != "praise" {
		t.Fatalf("first: expected praise, got %v", first.Matched)
	}

	strongest, _ := NewLexiconResolver(testLexicon(t), PolicyStrongest).Resolve(text)
	if len(strongest.Matched) != 1 || strongest.Matched[0] != "insult" {
		t.Fatalf("strongest: expected insult, got %v", strongest.Matched)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]MatchPolicy{"": PolicySum, "sum": PolicySum, "first": PolicyFirst, "strongest": PolicyStrongest} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("random"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// #endregion policy-tests

// #region unresolved-tests
func TestUnresolvedIsNotAnError(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	in := Text("quarterly tax filing")
	res, err := r.Resolve(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Unresolved || !res.Delta.IsZero() {
		t.Fatalf("expected zero unresolved resolution, got %+v", res)
	}
	w := res.Warning(in)
	if w == nil || w.Input != in.String() {
		t.Fatalf("expected warning for %s, got %v", in, w)
	}
}

func TestResolvedHasNoWarning(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	res, _ := r.Resolve(Key("praise"))
	if res.Warning(Key("praise")) != nil {
		t.Fatal("expected no warning")
	}
}

// #endregion unresolved-tests

// #region validation-tests
func TestResolveRejectsMalformedInput(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	bad := []Input{
		Key(""),
		Text("   "),
		Override(coord.Delta{Serotonin: math.NaN()}, "nan"),
		Override(coord.Delta{Dopamine: math.Inf(1)}, "inf"),
		{Kind: KindOverride},
		{Kind: "telepathy"},
	}
	for _, in := range bad {
		if _, err := r.Resolve(in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", in, err)
		}
	}
}

func TestResolveOverride(t *testing.T) {
	r := NewLexiconResolver(testLexicon(t), PolicySum)
	d := coord.Delta{Serotonin: -0.2, Dopamine: 0.1, Noradrenaline: 0.9}
	res, err := r.Resolve(Override(d, "sensor"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Delta != d || res.Matched[0] != "sensor" || res.Polarity != Negative {
		t.Fatalf("unexpected override resolution %+v", res)
	}
}

func TestOverrideCopiesDelta(t *testing.T) {
	d := coord.Delta{Serotonin: 0.1}
	in := Override(d, "x")
	d.Serotonin = 0.9
	if in.Delta.Serotonin != 0.1 {
		t.Fatal("override should not alias caller's delta")
	}
}

// #endregion validation-tests

// #region lexicon-tests
func TestNewLexiconValidation(t *testing.T) {
	cases := [][]Entry{
		{{Key: ""}},
		{{Key: "a"}, {Key: "A"}},
		{{Key: "a", Delta: coord.Delta{Serotonin: math.NaN()}}},
		{{Key: "a", Polarity: "angry"}},
	}
	for i, entries := range cases {
		if _, err := NewLexicon(entries); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestParseLexiconYAML(t *testing.T) {
	data := []byte(`
entries:
  - key: hug
    synonyms: ["embrace", "cuddle"]
    delta: {serotonin: 0.5, dopamine: 0.3, noradrenaline: -0.3}
    polarity: positive
  - key: scold
    delta: {serotonin: -0.4, dopamine: -0.2, noradrenaline: 0.3}
`)
	lex, err := ParseLexicon(data)
	if err != nil {
		t.Fatalf("ParseLexicon: %v", err)
	}
	if lex.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", lex.Len())
	}
	e, ok := lex.Lookup("scold")
	if !ok || e.Polarity != Neutral || e.Delta.Noradrenaline != 0.3 {
		t.Fatalf("unexpected scold entry %+v", e)
	}

	out, err := lex.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := ParseLexicon(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if again.Len() != 2 {
		t.Fatalf("round trip lost entries")
	}
}

func TestParseLexiconBadYAML(t *testing.T) {
	if _, err := ParseLexicon([]byte("entries: [")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDefaultLexiconHasFixtureKeys(t *testing.T) {
	lex := DefaultLexicon()
	for _, k := range []string{"praise", "criticism", "music"} {
		if _, ok := lex.Lookup(k); !ok {
			t.Errorf("default lexicon missing %s", k)
		}
	}
}

// #endregion lexicon-tests

// #region parse-tests
func TestParseLine(t *testing.T) {
	in, err := Parse("!praise")
	if err != nil || in.Kind != KindKey || in.Key != "praise" {
		t.Fatalf("key parse: %+v %v", in, err)
	}
	in, err = Parse("=0.2, -0.1, 0.4")
	if err != nil || in.Kind != KindOverride || in.Delta.Dopamine != -0.1 {
		t.Fatalf("override parse: %+v %v", in, err)
	}
	in, err = Parse("  you did well  ")
	if err != nil || in.Kind != KindText || in.Text != "you did well" {
		t.Fatalf("text parse: %+v %v", in, err)
	}
	for _, bad := range []string{"", "!", "=1,2", "=nan,0,0", "=0.2,0.1,0.4,9,9", "=0.2,0.1,0.4garbage", "=0.2,,0.4"} {
		if _, err := Parse(bad); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Parse(%q): expected validation error, got %v", bad, err)
		}
	}
}

// #endregion parse-tests
