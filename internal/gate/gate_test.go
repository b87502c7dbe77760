package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgdnvk/topicguard/internal/conversation"
	"github.com/bgdnvk/topicguard/internal/relevance"
)

type recordedQuery struct {
	query  string
	result relevance.Result
}

type fakeRecorder struct {
	queries []recordedQuery
	err     error
}

func (r *fakeRecorder) RecordRejected(_ context.Context, query string, result relevance.Result) error {
	r.queries = append(r.queries, recordedQuery{query: query, result: result})
	return r.err
}

func newClassifier(t *testing.T) *relevance.Classifier {
	t.Helper()
	clf, err := relevance.New(context.Background(), relevance.DefaultLexicon())
	require.NoError(t, err)
	return clf
}

var dsaHistory = []conversation.Turn{
	{Role: conversation.RoleUser, Content: "What is binary search algorithm?", Relevant: true},
	{Role: conversation.RoleAssistant, Content: "Binary search halves the range..."},
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		history  []conversation.Turn
		action   Action
		rule     string
		recorded bool
	}{
		{name: "dsa query", query: "What is binary search algorithm?", action: ActionAnswer, rule: "dsa_query"},
		{name: "follow-up after dsa turn", query: "ok got it", history: dsaHistory, action: ActionContinue, rule: "learning_follow_up"},
		{name: "thanks after dsa turn continues", query: "thanks", history: dsaHistory, action: ActionContinue, rule: "learning_follow_up"},
		{name: "follow-up without context", query: "ok got it", action: ActionRedirect, rule: "off_domain", recorded: true},
		{name: "greeting", query: "hello", action: ActionSmallTalk, rule: "small_talk"},
		{name: "off-domain inside dsa conversation", query: "How to cook pasta?", history: dsaHistory, action: ActionRedirect, rule: "off_domain", recorded: true},
		{name: "short query", query: "no", action: ActionRedirect, rule: "off_domain", recorded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			g := New(newClassifier(t), WithRecorder(rec))

			got := g.Evaluate(context.Background(), tt.query, tt.history)

			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.rule, got.Rule)
			assert.Equal(t, tt.action == ActionContinue, got.FollowUp)
			if tt.recorded {
				require.Len(t, rec.queries, 1)
				assert.Equal(t, tt.query, rec.queries[0].query)
				assert.Equal(t, got.Result, rec.queries[0].result)
			} else {
				assert.Empty(t, rec.queries)
			}
		})
	}
}

func TestEvaluate_AnswerCarriesResult(t *testing.T) {
	g := New(newClassifier(t))

	got := g.Evaluate(context.Background(), "What is binary search algorithm?", nil)

	assert.True(t, got.Result.IsDSARelated)
	assert.Equal(t, relevance.CategoryAlgorithms, got.Result.PrimaryCategory)
	assert.NotNil(t, got.Related)
	assert.Empty(t, got.Related)
}

func TestEvaluate_Intents(t *testing.T) {
	g := New(newClassifier(t))

	got := g.Evaluate(context.Background(), "yes", dsaHistory)

	assert.Equal(t, []string{"confirms_understanding", "wants_confirmation"}, got.Intents)
	assert.True(t, got.HasIntent(conversation.IntentConfirmation))
	assert.False(t, got.HasIntent(conversation.IntentNextTopic))
}

func TestEvaluate_ThresholdOption(t *testing.T) {
	g := New(newClassifier(t), WithThreshold(0.6))

	got := g.Evaluate(context.Background(), "What is binary search algorithm?", nil)

	assert.Equal(t, ActionRedirect, got.Action)
	assert.InDelta(t, 0.525, got.Result.Confidence, 1e-9)
}

func TestEvaluate_Lookback(t *testing.T) {
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "explain heaps", Relevant: true},
		{Role: conversation.RoleUser, Content: "ok"},
		{Role: conversation.RoleUser, Content: "right"},
		{Role: conversation.RoleUser, Content: "sure"},
	}

	short := New(newClassifier(t)).Evaluate(context.Background(), "yes", history)
	assert.Equal(t, ActionRedirect, short.Action)

	long := New(newClassifier(t), WithLookback(4)).Evaluate(context.Background(), "yes", history)
	assert.Equal(t, ActionContinue, long.Action)
}

func TestEvaluate_RecorderFailureIgnored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	g := New(newClassifier(t), WithRecorder(rec))

	got := g.Evaluate(context.Background(), "What's the weather today?", nil)

	assert.Equal(t, ActionRedirect, got.Action)
	assert.NotEmpty(t, got.Result.Suggestion)
	assert.Len(t, rec.queries, 1)
}

type stubClassifier struct {
	result  relevance.Result
	related []string
}

func (s stubClassifier) Classify(context.Context, string, float64) relevance.Result {
	return s.result
}

func (s stubClassifier) SuggestRelatedTopics(_ context.Context, _ string, max int) []string {
	return s.related[:min(max, len(s.related))]
}

func TestEvaluate_RelatedTopicsLimited(t *testing.T) {
	clf := stubClassifier{
		result:  relevance.Result{IsDSARelated: true, Confidence: 0.9},
		related: []string{"dynamic programming", "greedy algorithms", "backtracking and recursion"},
	}
	g := New(clf, WithMaxRelated(2))

	got := g.Evaluate(context.Background(), "memoized fibonacci", nil)

	assert.Equal(t, ActionAnswer, got.Action)
	assert.Equal(t, []string{"dynamic programming", "greedy algorithms"}, got.Related)
}
