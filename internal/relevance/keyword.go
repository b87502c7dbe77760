package relevance

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	phraseWeight = 2
	tokenWeight  = 1
)

type phraseEntry struct {
	term       string
	categories []Category
}

// termIndex is the lookup structure built once from a Lexicon.
type termIndex struct {
	phrases  []phraseEntry
	stems    map[string][]Category
	offTopic []string
}

func buildTermIndex(lex Lexicon, normalizer *Normalizer) *termIndex {
	idx := &termIndex{
		stems:    make(map[string][]Category),
		offTopic: slices.Clone(lex.OffTopic),
	}
	phrasePos := make(map[string]int)

	for _, category := range Categories {
		for _, term := range lex.Categories[category] {
			if isPhraseTerm(term) {
				pos, seen := phrasePos[term]
				if !seen {
					phrasePos[term] = len(idx.phrases)
					idx.phrases = append(idx.phrases, phraseEntry{term: term, categories: []Category{category}})
					continue
				}
				if !slices.Contains(idx.phrases[pos].categories, category) {
					idx.phrases[pos].categories = append(idx.phrases[pos].categories, category)
				}
				continue
			}
			stem := normalizer.Stem(term)
			if !slices.Contains(idx.stems[stem], category) {
				idx.stems[stem] = append(idx.stems[stem], category)
			}
		}
	}
	return idx
}

type phraseMatch struct {
	entry  phraseEntry
	offset int
}

// extractPhrases returns the phrase terms contained in lower, ordered by
// where they first occur in the text and then by lexicon order.
func (idx *termIndex) extractPhrases(lower string) []phraseEntry {
	var matches []phraseMatch
	for _, entry := range idx.phrases {
		if offset := strings.Index(lower, entry.term); offset >= 0 {
			matches = append(matches, phraseMatch{entry: entry, offset: offset})
		}
	}
	slices.SortStableFunc(matches, func(a, b phraseMatch) int {
		return cmp.Compare(a.offset, b.offset)
	})

	out := make([]phraseEntry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

// hasOffTopic reports whether lower contains any off-topic term.
func (idx *termIndex) hasOffTopic(lower string) bool {
	for _, term := range idx.offTopic {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// keywordScore is the output of the lexical stage.
type keywordScore struct {
	Score          float64
	Matched        []string
	Primary        Category
	CategoryScores map[Category]int
	Considered     int
}

// scoreKeywords weighs phrase hits at 2 and token hits at 1 per category the
// term belongs to, then normalizes by the number of tokens and phrases seen.
func (idx *termIndex) scoreKeywords(n Normalized) keywordScore {
	phrases := idx.extractPhrases(n.Lower)
	scores := make(map[Category]int, len(Categories))
	matched := make([]string, 0, len(phrases)+len(n.Tokens))

	for _, phrase := range phrases {
		matched = append(matched, phrase.term)
		for _, category := range phrase.categories {
			scores[category] += phraseWeight
		}
	}
	for _, token := range n.Tokens {
		categories, ok := idx.stems[token.Stem]
		if !ok {
			continue
		}
		matched = append(matched, token.Surface)
		for _, category := range categories {
			scores[category] += tokenWeight
		}
	}

	total := 0
	primary := CategoryUnknown
	best := 0
	for _, category := range Categories {
		score := scores[category]
		total += score
		if score > best {
			best = score
			primary = category
		}
	}

	considered := len(n.Tokens) + len(phrases)
	result := keywordScore{
		Matched:        matched,
		Primary:        primary,
		CategoryScores: scores,
		Considered:     considered,
	}
	if considered > 0 {
		result.Score = math.Min(float64(total)/float64(considered), 1.0)
	}
	return result
}
