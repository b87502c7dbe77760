package relevance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeywordClassifier(t *testing.T) *Classifier {
	t.Helper()
	clf, err := New(context.Background(), DefaultLexicon())
	require.NoError(t, err)
	return clf
}

func TestNew_RejectsInvalidLexicon(t *testing.T) {
	lex := DefaultLexicon()
	lex.OffTopic = nil

	clf, err := New(context.Background(), lex)

	assert.Nil(t, clf)
	assert.ErrorIs(t, err, ErrInvalidLexicon)
}

func TestClassify_ShortQueries(t *testing.T) {
	clf := newKeywordClassifier(t)

	for _, query := range []string{"", " ", "a", "ab", "  ab  ", "\tdp\n"} {
		got := clf.Classify(context.Background(), query, DefaultThreshold)

		assert.False(t, got.IsDSARelated, query)
		assert.Zero(t, got.Confidence, query)
		assert.Equal(t, ShortQueryReason, got.Reason, query)
		assert.Empty(t, got.Suggestion, query)
		assert.Empty(t, got.MatchedKeywords, query)
		assert.Equal(t, CategoryUnknown, got.PrimaryCategory, query)
	}
}

func TestClassify_Scenarios(t *testing.T) {
	clf := newKeywordClassifier(t)

	tests := []struct {
		name       string
		query      string
		relevant   bool
		confidence float64
		primary    Category
	}{
		{name: "binary search", query: "What is binary search algorithm?", relevant: true, confidence: 0.525, primary: CategoryAlgorithms},
		{name: "bare tokens", query: "array sort tree", relevant: true, confidence: 0.7, primary: CategoryDataStructures},
		{name: "cooking", query: "How to cook pasta?", relevant: false, confidence: 0, primary: CategoryUnknown},
		{name: "stack with arrays", query: "How to implement a stack using arrays?", relevant: true, confidence: 0.35, primary: CategoryDataStructures},
		{name: "greeting", query: "Hello", relevant: false, confidence: 0, primary: CategoryUnknown},
		{name: "strong score escapes off-topic", query: "binary search tree in java", relevant: true, confidence: 0.7, primary: CategoryDataStructures},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clf.Classify(context.Background(), tt.query, DefaultThreshold)

			assert.Equal(t, tt.relevant, got.IsDSARelated)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.primary, got.PrimaryCategory)
			assert.Zero(t, got.SemanticScore)
			if tt.relevant {
				assert.Empty(t, got.Suggestion)
				assert.True(t, strings.HasPrefix(got.Reason, "Query matches DSA topics"), got.Reason)
			} else {
				assert.NotEmpty(t, got.Suggestion)
			}
		})
	}
}

func TestClassify_BinarySearchMatches(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "What is binary search algorithm?", DefaultThreshold)

	assert.Equal(t, []string{"binary search", "search"}, got.MatchedKeywords)
}

func TestClassify_OffTopicRedirect(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "How to cook pasta?", DefaultThreshold)

	assert.Equal(t, "Query score 0.00 below threshold 0.3", got.Reason)
	assert.Equal(t, topicMenuSuggestion, got.Suggestion)
	assert.Empty(t, got.MatchedKeywords)
}

func TestClassify_OffTopicDampening(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "sorting in python", DefaultThreshold)

	assert.True(t, got.OffTopic)
	assert.InDelta(t, 0.5, got.KeywordScore, 1e-9)
	assert.InDelta(t, 0.7*0.5*0.5, got.Confidence, 1e-9)
	assert.False(t, got.IsDSARelated)
	assert.Contains(t, got.Suggestion, "'sorting'")
}

func TestClassify_OffTopicGuardBeatsLowThreshold(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "sorting in python", 0.1)

	assert.InDelta(t, 0.175, got.Confidence, 1e-9)
	assert.False(t, got.IsDSARelated)
	assert.Equal(t, "Query score 0.17 suppressed by off-topic terms (threshold 0.1)", got.Reason)
}

func TestClassify_SuggestionEchoesFirstThreeMatches(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "stack queue heap trie in my python web framework server", DefaultThreshold)

	require.False(t, got.IsDSARelated)
	assert.Contains(t, got.Suggestion, "'stack, queue, heap'")
	assert.NotContains(t, got.Suggestion, "trie")
}

func TestClassify_Invariants(t *testing.T) {
	clf := newKeywordClassifier(t)
	queries := []string{
		"What is binary search?",
		"How does merge sort work?",
		"Explain dynamic programming",
		"What's the time complexity of quicksort?",
		"Difference between BFS and DFS",
		"What are the applications of hash tables?",
		"What's the weather today?",
		"Tell me about web development",
		"What is machine learning?",
		"o(n log n) vs o(n^2) sorting with a b-tree",
		"stack stack stack stack",
	}

	for _, threshold := range []float64{0, 0.3, 0.6, 1} {
		for _, query := range queries {
			got := clf.Classify(context.Background(), query, threshold)

			assert.GreaterOrEqual(t, got.KeywordScore, 0.0, query)
			assert.LessOrEqual(t, got.KeywordScore, 1.0, query)
			assert.GreaterOrEqual(t, got.Confidence, 0.0, query)
			assert.LessOrEqual(t, got.Confidence, 1.0, query)
			assert.Equal(t, got.KeywordScore == 0, len(got.MatchedKeywords) == 0, query)
			if got.Confidence < threshold {
				assert.False(t, got.IsDSARelated, query)
			}
			assert.NotEmpty(t, got.Reason, query)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	clf := newKeywordClassifier(t)

	for _, query := range []string{"How to solve two sum problem?", "Best way to traverse a binary tree", "news"} {
		first := clf.Classify(context.Background(), query, DefaultThreshold)
		second := clf.Classify(context.Background(), query, DefaultThreshold)
		assert.Equal(t, first, second, query)
	}
}

func TestClassify_ComplexityNotation(t *testing.T) {
	clf := newKeywordClassifier(t)

	got := clf.Classify(context.Background(), "is o(n log n) better than o(n^2)?", DefaultThreshold)

	assert.Equal(t, []string{"o(n log n)", "o(n^2)"}, got.MatchedKeywords)
	assert.InDelta(t, 1.0, got.KeywordScore, 1e-9)
	assert.Equal(t, CategoryComplexity, got.PrimaryCategory)
	assert.True(t, got.IsDSARelated)
}

func TestWithoutEncoder_NoSemanticStage(t *testing.T) {
	clf := newKeywordClassifier(t)

	assert.False(t, clf.SemanticEnabled())
	for _, query := range []string{"dynamic programming", "How to cook pasta?", "graphs"} {
		assert.Zero(t, clf.Classify(context.Background(), query, DefaultThreshold).SemanticScore)
		topics := clf.SuggestRelatedTopics(context.Background(), query, DefaultMaxSuggestions)
		assert.NotNil(t, topics)
		assert.Empty(t, topics)
	}
}

func TestTopicsByCategory(t *testing.T) {
	clf := newKeywordClassifier(t)

	one := clf.TopicsByCategory(CategoryComplexity)
	require.Len(t, one, 1)
	assert.Contains(t, one[CategoryComplexity], "big o")

	one[CategoryComplexity][0] = "mutated"
	assert.Equal(t, "time complexity", clf.TopicsByCategory(CategoryComplexity)[CategoryComplexity][0])

	all := clf.TopicsByCategory(CategoryUnknown)
	assert.Len(t, all, len(Categories))
}

func TestCombineScores(t *testing.T) {
	tests := []struct {
		name     string
		keyword  float64
		semantic float64
		offTopic bool
		want     float64
	}{
		{name: "weighted", keyword: 1, semantic: 1, want: 1},
		{name: "keyword only", keyword: 0.5, want: 0.35},
		{name: "semantic only", semantic: 0.5, want: 0.15},
		{name: "dampened", keyword: 0.5, semantic: 0.5, offTopic: true, want: 0.25},
		{name: "at ceiling not dampened", keyword: 0.6 / 0.7, offTopic: true, want: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, combineScores(tt.keyword, tt.semantic, tt.offTopic), 1e-9)
		})
	}
}

func TestIsRelevant(t *testing.T) {
	assert.True(t, isRelevant(0.3, 0.3, false))
	assert.False(t, isRelevant(0.29, 0.3, false))
	assert.False(t, isRelevant(0.5, 0.3, true))
	assert.True(t, isRelevant(0.6, 0.3, true))
}
