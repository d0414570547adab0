// Package session keeps per-session conversation history in memory.
//
// History is bounded and not persisted: a process restart clears all
// sessions. Cross-instance affinity is out of scope; a multi-instance
// deployment needs an external session store.
package session

import (
	"sync"
	"time"

	"github.com/evermem/evermem-go/core"
)

// DefaultMaxTurns retains the five most recent exchanges.
const DefaultMaxTurns = 10

// Store maps session IDs to bounded, ordered turn lists. Sessions are
// created lazily on first append. Appends to the same session are
// serialized by a per-session lock; reads return snapshots.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	maxTurns int
}

type entry struct {
	mu    sync.Mutex
	turns []core.Turn
}

// NewStore creates a store retaining at most maxTurns turns per session.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		sessions: make(map[string]*entry),
		maxTurns: maxTurns,
	}
}

// Get returns a snapshot of the session's turns, oldest first. A missing
// session yields nil.
func (s *Store) Get(sessionID string) []core.Turn {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make([]core.Turn, len(e.turns))
	copy(snapshot, e.turns)
	return snapshot
}

// AppendExchange appends one question/answer pair as two turns, then
// evicts from the front down to the turn cap. The pair is committed
// atomically so concurrent appends never interleave half an exchange.
func (s *Store) AppendExchange(sessionID, question, answer string) {
	e := s.session(sessionID)
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = append(e.turns,
		core.Turn{Role: core.RoleUser, Text: question, Timestamp: now},
		core.Turn{Role: core.RoleAssistant, Text: answer, Timestamp: now},
	)
	if excess := len(e.turns) - s.maxTurns; excess > 0 {
		e.turns = append(e.turns[:0:0], e.turns[excess:]...)
	}
}

// Len returns the session's current turn count.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.turns)
}

// Reset drops all sessions.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*entry)
}

func (s *Store) session(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}
	e = &entry{}
	s.sessions[sessionID] = e
	return e
}
