// Package conversation keeps per-session turn history for the lifetime of
// the process. History is append-only and owned by its session; nothing is
// persisted.
package conversation

import (
	"sync"
	"time"

	"github.com/redinsight/agent/internal/models"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string][]models.ConversationTurn
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]models.ConversationTurn)}
}

// Append adds a turn to the session history, stamping it if needed.
func (s *Store) Append(sessionID string, turn models.ConversationTurn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
}

// Window returns a copy of the last n turns for the session, oldest first.
func (s *Store) Window(sessionID string, n int) []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]models.ConversationTurn(nil), history...)
}

// Len reports the number of turns recorded for the session.
func (s *Store) Len(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}

// Clear discards the session's history.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
