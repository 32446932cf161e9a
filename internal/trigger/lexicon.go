package trigger

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region polarity
// Polarity tags an entry for bookkeeping. The math never reads it.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
	Mixed    Polarity = "mixed"
)

// #endregion polarity

// #region entry
// Entry maps one canonical trigger key and its synonyms to a delta.
type Entry struct {
	Key      string      `json:"key" yaml:"key"`
	Synonyms []string    `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Delta    coord.Delta `json:"delta" yaml:"delta"`
	Polarity Polarity    `json:"polarity" yaml:"polarity"`
}

// terms returns the normalized phrases that match this entry in free text.
func (e Entry) terms() []string {
	out := make([]string, 0, len(e.Synonyms)+1)
	if k := normalize(strings.ReplaceAll(e.Key, "_", " ")); k != "" {
		out = append(out, k)
	}
	for _, s := range e.Synonyms {
		n := normalize(s)
		if n == "" {
			continue
		}
		if !strings.Contains(n, " ") && stopwords[n] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// #endregion entry

// #region lexicon
// Lexicon is an ordered, immutable set of entries. Order matters for the
// first-match and strongest-match policies.
type Lexicon struct {
	entries []Entry
	byKey   map[string]int
	terms   [][]string
}

type lexiconFile struct {
	Entries []Entry `yaml:"entries"`
}

// NewLexicon validates and indexes entries.
func NewLexicon(entries []Entry) (*Lexicon, error) {
	l := &Lexicon{
		entries: make([]Entry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
		terms:   make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		key := canonicalKey(e.Key)
		if key == "" {
			return nil, domain.NewValidationError("lexicon", "entry with empty key")
		}
		if _, dup := l.byKey[key]; dup {
			return nil, domain.NewValidationError("lexicon", fmt.Sprintf("duplicate key %q", e.Key))
		}
		if err := e.Delta.Validate(); err != nil {
			return nil, fmt.Errorf("lexicon entry %s: %w", e.Key, err)
		}
		switch e.Polarity {
		case Positive, Negative, Neutral:
		case "":
			e.Polarity = Neutral
		default:
			return nil, domain.NewValidationError("lexicon", fmt.Sprintf("entry %s: unknown polarity %q", e.Key, e.Polarity))
		}
		e.Key = key
		l.byKey[key] = len(l.entries)
		l.entries = append(l.entries, e)
		l.terms = append(l.terms, e.terms())
	}
	return l, nil
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML lexicon bytes.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.NewValidationError("lexicon", fmt.Sprintf("parse yaml: %v", err))
	}
	return NewLexicon(f.Entries)
}

// Marshal encodes the lexicon back into YAML.
func (l *Lexicon) Marshal() ([]byte, error) {
	return yaml.Marshal(lexiconFile{Entries: l.Entries()})
}

// Entries returns a copy of the entries in order.
func (l *Lexicon) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len is the number of entries.
func (l *Lexicon) Len() int { return len(l.entries) }

// Lookup finds an entry by canonical key.
func (l *Lexicon) Lookup(key string) (Entry, bool) {
	i, ok := l.byKey[canonicalKey(key)]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// matches returns the indexes of every entry whose key or synonym appears in text.
func (l *Lexicon) matches(text string) []int {
	padded := " " + normalize(text) + " "
	var hits []int
	for i, terms := range l.terms {
		for _, term := range terms {
			if strings.Contains(padded, " "+term+" ") {
				hits = append(hits, i)
				break
			}
		}
	}
	return hits
}

func canonicalKey(k string) string {
	return strings.ReplaceAll(normalize(k), " ", "_")
}

// #endregion lexicon

// #region default-lexicon
// DefaultLexicon is the built-in lexicon. Deltas point toward the anchors of
// emotion.DefaultTable.
func DefaultLexicon() *Lexicon {
	l, err := NewLexicon([]Entry{
		{Key: "praise", Synonyms: []string{"good job", "well done", "great work", "proud of you", "amazing", "brilliant"}, Delta: coord.Delta{Serotonin: 0.6, Dopamine: 0.6, Noradrenaline: -0.2}, Polarity: Positive},
		{Key: "criticism", Synonyms: []string{"bad job", "disappointing", "you failed", "useless", "wrong again"}, Delta: coord.Delta{Serotonin: -0.6, Dopamine: -0.4, Noradrenaline: 0.3}, Polarity: Negative},
		{Key: "music", Synonyms: []string{"song", "melody", "sing", "playing music"}, Delta: coord.Delta{Serotonin: 0.5, Dopamine: 0.4, Noradrenaline: -0.2}, Polarity: Positive},
		{Key: "greeting", Synonyms: []string{"hello", "good morning", "hi there", "nice to see you"}, Delta: coord.Delta{Serotonin: 0.2, Dopamine: 0.2, Noradrenaline: 0.05}, Polarity: Positive},
		{Key: "insult", Synonyms: []string{"stupid", "idiot", "shut up", "hate you"}, Delta: coord.Delta{Serotonin: -0.5, Dopamine: 0.4, Noradrenaline: 0.6}, Polarity: Negative},
		{Key: "threat", Synonyms: []string{"danger", "watch out", "going to hurt", "attack"}, Delta: coord.Delta{Serotonin: -0.6, Dopamine: 0.3, Noradrenaline: -0.5}, Polarity: Negative},
		{Key: "gift", Synonyms: []string{"present for you", "surprise gift", "got you something"}, Delta: coord.Delta{Serotonin: 0.5, Dopamine: 0.5, Noradrenaline: 0.1}, Polarity: Positive},
		{Key: "loss", Synonyms: []string{"passed away", "goodbye forever", "lost", "gone"}, Delta: coord.Delta{Serotonin: -0.6, Dopamine: -0.6, Noradrenaline: -0.1}, Polarity: Negative},
		{Key: "joke", Synonyms: []string{"funny", "haha", "lol", "knock knock"}, Delta: coord.Delta{Serotonin: 0.4, Dopamine: 0.5, Noradrenaline: 0.1}, Polarity: Positive},
		{Key: "loud_noise", Synonyms: []string{"bang", "crash", "explosion", "boom"}, Delta: coord.Delta{Serotonin: 0.3, Dopamine: -0.3, Noradrenaline: 0.7}, Polarity: Neutral},
		{Key: "rotten_smell", Synonyms: []string{"stinks", "rotten", "smells bad", "gross"}, Delta: coord.Delta{Serotonin: 0.4, Dopamine: -0.6, Noradrenaline: -0.4}, Polarity: Negative},
		{Key: "ignored", Synonyms: []string{"no one listens", "ignore you", "leave me alone"}, Delta: coord.Delta{Serotonin: -0.4, Dopamine: -0.5, Noradrenaline: 0}, Polarity: Negative},
	})
	if err != nil {
		panic(fmt.Sprintf("default lexicon invalid: %v", err))
	}
	return l
}

// #endregion default-lexicon
