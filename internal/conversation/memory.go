// Package conversation tracks chat turns and the learning-flow intents users
// express between DSA questions.
package conversation

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat. Relevant records whether a user turn was
// classified as DSA related.
type Turn struct {
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
	Relevant bool      `json:"relevant,omitempty"`
}

// Memory keeps the most recent turns of a conversation. It is safe for
// concurrent use.
type Memory struct {
	mu          sync.RWMutex
	turns       []Turn
	maxTurns    int
	lastUpdated time.Time
}

func NewMemory(maxTurns int) *Memory {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Memory{
		turns:       make([]Turn, 0, maxTurns),
		maxTurns:    maxTurns,
		lastUpdated: time.Now(),
	}
}

// Add appends turn, evicting the oldest turn once the memory is full. A zero
// At is set to the current time.
func (m *Memory) Add(turn Turn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	if len(m.turns) > m.maxTurns {
		m.turns = m.turns[len(m.turns)-m.maxTurns:]
	}
	m.lastUpdated = time.Now()
}

// Recent returns a copy of the last n turns, oldest first. n <= 0 returns
// every stored turn.
func (m *Memory) Recent(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]Turn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

func (m *Memory) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdated
}

// RecentlyRelevant reports whether any of the last lookback user turns in
// history was DSA related.
func RecentlyRelevant(history []Turn, lookback int) bool {
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < lookback; i-- {
		if history[i].Role != RoleUser {
			continue
		}
		seen++
		if history[i].Relevant {
			return true
		}
	}
	return false
}
