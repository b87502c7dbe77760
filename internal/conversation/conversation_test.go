package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_EvictsOldestTurns(t *testing.T) {
	m := NewMemory(3)
	for i := range 5 {
		m.Add(Turn{Role: RoleUser, Content: fmt.Sprintf("q%d", i)})
	}

	require.Equal(t, 3, m.Len())
	recent := m.Recent(0)
	assert.Equal(t, "q2", recent[0].Content)
	assert.Equal(t, "q4", recent[2].Content)
	assert.False(t, recent[0].At.IsZero())

	last := m.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, "q4", last[0].Content)
}

func TestMemory_RecentReturnsCopy(t *testing.T) {
	m := NewMemory(2)
	m.Add(Turn{Role: RoleUser, Content: "stack"})

	got := m.Recent(5)
	got[0].Content = "mutated"

	assert.Equal(t, "stack", m.Recent(1)[0].Content)
}

func TestMemory_ConcurrentAdds(t *testing.T) {
	m := NewMemory(50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add(Turn{Role: RoleUser, Content: fmt.Sprint(i)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.Len())
	assert.WithinDuration(t, time.Now(), m.LastUpdated(), time.Minute)
}

func TestRecentlyRelevant(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "what is a heap", Relevant: true},
		{Role: RoleAssistant, Content: "a heap is..."},
		{Role: RoleUser, Content: "ok"},
		{Role: RoleAssistant, Content: "..."},
		{Role: RoleUser, Content: "thanks"},
	}

	tests := []struct {
		name     string
		history  []Turn
		lookback int
		want     bool
	}{
		{name: "within lookback", history: history, lookback: 3, want: true},
		{name: "outside lookback", history: history, lookback: 2, want: false},
		{name: "assistant turns not counted", history: history[:2], lookback: 1, want: true},
		{name: "empty", history: nil, lookback: 3, want: false},
		{name: "zero lookback", history: history, lookback: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecentlyRelevant(tt.history, tt.lookback))
		})
	}
}

func TestDetectIntents(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "understanding", query: "Ok, got it!", want: []string{"confirms_understanding"}},
		{name: "yes", query: "yes", want: []string{"confirms_understanding", "wants_confirmation"}},
		{name: "next topic", query: "next topic please", want: []string{"wants_next_topic"}},
		{name: "more explanation", query: "I don't get it, can you explain", want: []string{"needs_more_explanation"}},
		{name: "satisfied", query: "I am satisfied with this topic", want: []string{"satisfied_with_topic"}},
		{name: "completion", query: "I’m done", want: []string{"wants_to_complete_topic"}},
		{name: "no thanks", query: "no thanks", want: []string{"confirms_understanding", "needs_more_explanation", "says_no_need_help"}},
		{name: "word boundaries", query: "How to cook pasta?", want: []string{}},
		{name: "empty", query: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectIntents(tt.query)
			assert.Equal(t, tt.want, got.Names())
			assert.Equal(t, len(tt.want) > 0, got.Any())
		})
	}
}

func TestIntents_Has(t *testing.T) {
	got := DetectIntents("yes")
	assert.True(t, got.Has(IntentConfirmation))
	assert.False(t, got.Has(IntentNoNeedHelp))
	assert.Equal(t, "unknown", Intent(99).String())
}

func TestIsSmallTalk(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{query: "hello", want: true},
		{query: "Hi there!", want: true},
		{query: "thanks!", want: true},
		{query: "hey, how are you doing on this fine afternoon?", want: true},
		{query: "hi, what is a heap?", want: false},
		{query: "this is cool", want: false},
		{query: "hello can you tell me about something long", want: false},
		{query: "what is binary search", want: false},
		{query: "", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSmallTalk(tt.query), tt.query)
	}
}

func TestNewDetector_ClonesTables(t *testing.T) {
	d := NewDetector()
	d.Patterns[IntentNextTopic][0] = "mutated"
	d.SmallTalk = append(d.SmallTalk, "yo")
	d.Greetings = append(d.Greetings, "yo")

	fresh := NewDetector()
	assert.Equal(t, "next topic", fresh.Patterns[IntentNextTopic][0])
	assert.NotContains(t, fresh.Greetings, "yo")
	assert.True(t, d.IsSmallTalk("yo"))
	assert.False(t, fresh.IsSmallTalk("yo"))
}

func TestSmallTalkReply(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "greeting", query: "Hello there", want: smallTalkReplies[0].reply},
		{name: "hi is a word not a substring", query: "this is nice", want: defaultSmallTalkReply},
		{name: "hi", query: "hi!", want: smallTalkReplies[1].reply},
		{name: "thanks", query: "Thanks a lot", want: smallTalkReplies[3].reply},
		{name: "multi-word phrase", query: "what can you do?", want: smallTalkReplies[6].reply},
		{name: "fallback", query: "good morning", want: defaultSmallTalkReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SmallTalkReply(tt.query))
		})
	}
}
