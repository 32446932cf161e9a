package trigger

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords are never accepted as single-word synonyms; they would match
// almost any utterance.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true,
	"can": true, "not": true, "no": true, "and": true, "or": true,
	"but": true, "if": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "of": true,
	"on": true, "to": true, "with": true, "it": true, "this": true,
	"that": true, "you": true, "me": true, "i": true, "my": true,
	"your": true, "we": true, "they": true,
}

// #endregion stopwords

// #region normalize
// normalize lowercases text and collapses every run of non-alphanumeric
// runes into a single space.
func normalize(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// #endregion normalize
