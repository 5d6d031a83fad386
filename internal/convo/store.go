// Package convo keeps a bounded, per-user conversation history for the
// agent's context window.
package convo

import "sync"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role
	Content string
}

// Store holds up to cap turns per user. Truncation drops the oldest
// non-system turns first; the most recent system turn survives.
type Store struct {
	cap   int
	mu    sync.Mutex
	turns map[int64][]Turn
}

const DefaultCap = 20

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{
		cap:   capacity,
		turns: make(map[int64][]Turn),
	}
}

func (s *Store) Append(userID int64, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.turns[userID], Turn{Role: role, Content: content})
	if len(history) > s.cap {
		history = trim(history, s.cap)
	}
	s.turns[userID] = history
}

func (s *Store) Get(userID int64) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.turns[userID]
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

// Tail returns at most n of the most recent turns.
func (s *Store) Tail(userID int64, n int) []Turn {
	history := s.Get(userID)
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func trim(history []Turn, capacity int) []Turn {
	// Find the most recent system turn; it is retained even when older
	// than the cut point.
	sysIdx := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleSystem {
			sysIdx = i
			break
		}
	}

	cut := len(history) - capacity
	if sysIdx >= 0 && sysIdx < cut {
		out := make([]Turn, 0, capacity)
		out = append(out, history[sysIdx])
		out = append(out, history[cut+1:]...)
		return out
	}
	return append([]Turn(nil), history[cut:]...)
}
