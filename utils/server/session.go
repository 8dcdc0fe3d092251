package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ds24m038/GenAI-Table-Processing/utils/processor"
	"github.com/ds24m038/GenAI-Table-Processing/utils/table"
)

// ErrSessionNotFound indicates an unknown or expired session identifier.
var ErrSessionNotFound = errors.New("session not found")

// Session holds one upload and its processing state. The pipeline receives
// the session's data explicitly; nothing in the core reaches into shared
// server state.
type Session struct {
	ID       string
	Filename string
	Uploaded *table.Table
	Steps    *processor.StepsConfig

	// Results of the most recent run. Processed may hold a partially
	// enriched table after a mid-run failure.
	Processed *table.Table
	Summary   *processor.RunSummary
	RunError  string
}

// SessionStore is an in-memory session registry. State lives only for the
// server's lifetime; persistence is out of scope.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create registers a new session for an uploaded table.
func (s *SessionStore) Create(filename string, tbl *table.Table) *Session {
	session := &Session{
		ID:       uuid.NewString(),
		Filename: filename,
		Uploaded: tbl,
		Steps:    &processor.StepsConfig{},
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns the session for an ID.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
