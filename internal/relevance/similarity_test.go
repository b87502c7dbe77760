package relevance

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errEncoderDown = errors.New("encoder down")

type fakeEncoder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	calls   int
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[text] {
		return nil, errEncoderDown
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 0}, nil
}

type fakeBatchEncoder struct {
	*fakeEncoder
	batches int
}

func (f *fakeBatchEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

var testTopics = []string{"dynamic programming", "graphs and graph algorithms", "string algorithms"}

const memoQuery = "memo table for fib numbers"

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{
		vectors: map[string][]float32{
			"dynamic programming":         {1, 0, 0},
			"graphs and graph algorithms": {0, 1, 0},
			"string algorithms":           {0, 0, 1},
			memoQuery:                     {0.9, 0.1, -0.5},
			"opposite of everything":      {-1, -1, -1},
		},
		fail: map[string]bool{},
	}
}

func newSemanticClassifier(t *testing.T, enc Encoder) *Classifier {
	t.Helper()
	clf, err := New(context.Background(), DefaultLexicon(), WithEncoder(enc), WithReferenceTopics(testTopics))
	require.NoError(t, err)
	return clf
}

func TestClassify_SemanticContribution(t *testing.T) {
	clf := newSemanticClassifier(t, newFakeEncoder())
	require.True(t, clf.SemanticEnabled())

	want := 0.9 / math.Sqrt(1.07)

	got := clf.Classify(context.Background(), memoQuery, DefaultThreshold)
	assert.Zero(t, got.KeywordScore)
	assert.InDelta(t, want, got.SemanticScore, 1e-6)
	assert.InDelta(t, 0.3*want, got.Confidence, 1e-6)
	assert.False(t, got.IsDSARelated)

	lowered := clf.Classify(context.Background(), memoQuery, 0.25)
	assert.True(t, lowered.IsDSARelated)
}

func TestClassify_NegativeCosineClampedToZero(t *testing.T) {
	clf := newSemanticClassifier(t, newFakeEncoder())

	got := clf.Classify(context.Background(), "opposite of everything", DefaultThreshold)

	assert.Zero(t, got.SemanticScore)
	assert.Empty(t, clf.SuggestRelatedTopics(context.Background(), "opposite of everything", DefaultMaxSuggestions))
}

func TestClassify_QueryEncodeFailureFallsBackToKeywords(t *testing.T) {
	enc := newFakeEncoder()
	clf := newSemanticClassifier(t, enc)
	enc.fail["array sort tree"] = true

	got := clf.Classify(context.Background(), "array sort tree", DefaultThreshold)

	assert.Zero(t, got.SemanticScore)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
	assert.True(t, got.IsDSARelated)
	assert.Empty(t, clf.SuggestRelatedTopics(context.Background(), "array sort tree", DefaultMaxSuggestions))
}

func TestNew_ReferenceEncodeFailureDisablesSemanticStage(t *testing.T) {
	enc := newFakeEncoder()
	enc.fail["string algorithms"] = true

	clf, err := New(context.Background(), DefaultLexicon(), WithEncoder(enc), WithReferenceTopics(testTopics))
	require.NoError(t, err)

	assert.False(t, clf.SemanticEnabled())
	assert.Zero(t, clf.Classify(context.Background(), memoQuery, DefaultThreshold).SemanticScore)
}

func TestNew_BatchEncoderCalledOnce(t *testing.T) {
	enc := &fakeBatchEncoder{fakeEncoder: newFakeEncoder()}

	clf := newSemanticClassifier(t, enc)

	assert.True(t, clf.SemanticEnabled())
	assert.Equal(t, 1, enc.batches)
	assert.Equal(t, len(testTopics), enc.calls)
}

func TestSuggestRelatedTopics(t *testing.T) {
	enc := newFakeEncoder()
	enc.vectors["graph dp"] = []float32{1, 1, 0}
	clf := newSemanticClassifier(t, enc)

	tests := []struct {
		name  string
		query string
		max   int
		want  []string
	}{
		{name: "single strong topic", query: memoQuery, max: 5, want: []string{"dynamic programming"}},
		{name: "ties keep reference order", query: "graph dp", max: 5, want: []string{"dynamic programming", "graphs and graph algorithms"}},
		{name: "truncated", query: "graph dp", max: 1, want: []string{"dynamic programming"}},
		{name: "zero max", query: "graph dp", max: 0, want: []string{}},
		{name: "unrelated", query: "zero vector query", max: 5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clf.SuggestRelatedTopics(context.Background(), tt.query, tt.max))
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	got, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	got, err = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.ErrorIs(t, err, errDimensionMismatch)

	_, err = cosineSimilarity([]float32{float32(math.NaN()), 1}, []float32{1, 0})
	assert.ErrorIs(t, err, errNonFiniteScore)

	_, err = cosineSimilarity([]float32{float32(math.Inf(1)), 0}, []float32{1, 0})
	assert.ErrorIs(t, err, errNonFiniteScore)
}

func TestClassify_NonFiniteEmbeddingScoresZero(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(-1))
	enc := newFakeEncoder()
	enc.vectors["nan vector query"] = []float32{nan, 1, 0}
	enc.vectors["inf vector query"] = []float32{inf, 0, 0}
	enc.vectors["binary search nan vector query"] = []float32{nan, 1, 0}
	clf := newSemanticClassifier(t, enc)

	for _, query := range []string{"nan vector query", "inf vector query", "binary search nan vector query"} {
		t.Run(query, func(t *testing.T) {
			got := clf.Classify(context.Background(), query, DefaultThreshold)
			assert.Zero(t, got.SemanticScore)
			assert.False(t, math.IsNaN(got.Confidence))
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)

			_, err := json.Marshal(got)
			assert.NoError(t, err)
			assert.Empty(t, clf.SuggestRelatedTopics(context.Background(), query, DefaultMaxSuggestions))
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Zero(t, clamp01(math.NaN()))
	assert.Zero(t, clamp01(-0.4))
	assert.Equal(t, 1.0, clamp01(math.Inf(1)))
	assert.InDelta(t, 0.6, clamp01(0.6), 1e-9)
}

func TestSimilarityValue(t *testing.T) {
	assert.Zero(t, Similarity{Score: 0.8}.Value())
	assert.Zero(t, Similarity{Score: 0.8, Available: true, Err: errEncoderDown}.Value())
	assert.InDelta(t, 0.8, Similarity{Score: 0.8, Available: true}.Value(), 1e-9)
}
