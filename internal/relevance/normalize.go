package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Token is a query word that survived stop-word removal.
type Token struct {
	Surface string
	Stem    string
}

// Normalized holds the forms of a query the scorers work on.
type Normalized struct {
	// Lower is the NFKC-folded, lower-cased query with whitespace collapsed.
	// Phrase and off-topic matching run against it.
	Lower string
	// Clean is Lower with punctuation removed, except the hyphens and
	// parentheses that occur inside technical terms such as "o(n log n)".
	Clean  string
	Tokens []Token
}

// Normalizer tokenizes and stems query text. It is stateless after
// construction and safe for concurrent use.
type Normalizer struct {
	stopWords map[string]struct{}
}

func NewNormalizer() *Normalizer {
	stop := make(map[string]struct{}, len(englishStopWords))
	for _, w := range englishStopWords {
		stop[w] = struct{}{}
	}
	return &Normalizer{stopWords: stop}
}

// Normalize never fails; empty or blank input yields no tokens.
func (n *Normalizer) Normalize(text string) Normalized {
	lower := lowerFold(text)
	clean := strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return ' '
	}, lower)

	out := Normalized{Lower: lower, Clean: clean}
	for _, field := range strings.FieldsFunc(clean, isTokenBoundary) {
		word := strings.Trim(field, "-")
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if _, stop := n.stopWords[word]; stop {
			continue
		}
		out.Tokens = append(out.Tokens, Token{Surface: word, Stem: n.Stem(word)})
	}
	return out
}

// Stem reduces a lower-case word to its Snowball base form. Lexicon terms go
// through the same function so both sides of a lookup agree.
func (n *Normalizer) Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

func lowerFold(text string) string {
	folded := cases.Lower(language.English).String(norm.NFKC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

func keepRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), unicode.IsSpace(r):
		return true
	case r == '_', r == '-', r == '(', r == ')':
		return true
	}
	return false
}

func isTokenBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')'
}

// isPhraseTerm reports whether a lexicon term can only be found by substring
// matching: anything with a rune that tokenization would split on or drop.
func isPhraseTerm(term string) bool {
	for _, r := range term {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}
	return false
}
