package relevance

import (
	"context"
	"fmt"
)

// Category tags the lexicon bucket a term belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryDataStructures
	CategoryAlgorithms
	CategoryComplexity
	CategoryTechniques
	CategoryProblemTypes
)

// Categories lists the scored categories in tie-break order.
var Categories = []Category{
	CategoryDataStructures,
	CategoryAlgorithms,
	CategoryComplexity,
	CategoryTechniques,
	CategoryProblemTypes,
}

var categoryNames = map[Category]string{
	CategoryUnknown:        "unknown",
	CategoryDataStructures: "data_structures",
	CategoryAlgorithms:     "algorithms",
	CategoryComplexity:     "complexity",
	CategoryTechniques:     "techniques",
	CategoryProblemTypes:   "problem_types",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether c is one of the five scored categories.
func (c Category) Known() bool {
	return c > CategoryUnknown && c <= CategoryProblemTypes
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory maps a category name back to its tag. Both "structures" and
// "data_structures" are accepted, as are hyphenated spellings.
func ParseCategory(name string) (Category, error) {
	switch name {
	case "unknown", "":
		return CategoryUnknown, nil
	case "data_structures", "data-structures", "structures":
		return CategoryDataStructures, nil
	case "algorithms":
		return CategoryAlgorithms, nil
	case "complexity":
		return CategoryComplexity, nil
	case "techniques":
		return CategoryTechniques, nil
	case "problem_types", "problem-types":
		return CategoryProblemTypes, nil
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", name)
}

// Encoder turns text into a sentence embedding.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// BatchEncoder is implemented by encoders that can embed several texts in one call.
type BatchEncoder interface {
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ReferenceTopic is a canonical DSA subject used as a semantic anchor.
type ReferenceTopic struct {
	Phrase string
	Vector []float32
}

// Result is the outcome of a single Classify call.
type Result struct {
	IsDSARelated    bool     `json:"is_dsa_related"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	PrimaryCategory Category `json:"primary_category"`
	Reason          string   `json:"reason"`
	Suggestion      string   `json:"suggestion"`
	KeywordScore    float64  `json:"keyword_score"`
	SemanticScore   float64  `json:"semantic_score"`
	OffTopic        bool     `json:"off_topic"`
}

// Similarity is the outcome of the optional semantic stage. A zero
// Similarity means the stage did not contribute.
type Similarity struct {
	Score     float64
	Available bool
	Err       error
}

// Value is the score the decision policy uses: failures contribute nothing.
func (s Similarity) Value() float64 {
	if !s.Available || s.Err != nil {
		return 0
	}
	return s.Score
}
