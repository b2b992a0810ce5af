// Package session provides in-memory conversation history, keyed by the
// chat platform user ID.
//
// Each session holds a bounded sliding window of messages. The store also
// hands out a per-session turn lock so concurrent webhooks for the same
// user serialize while distinct users proceed in parallel.
package session

import (
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// History is the bounded message window for one session.
// Safe for concurrent use; reads return defensive copies.
type History struct {
	mu          sync.RWMutex
	messages    []*ai.Message
	maxMessages int
}

// NewHistory creates an empty history retaining at most maxMessages
// messages. Zero or negative means unbounded.
func NewHistory(maxMessages int) *History {
	return &History{maxMessages: maxMessages}
}

// Add appends one completed turn (user input and assistant response) and
// trims the oldest messages beyond the retention bound.
func (h *History) Add(userInput, assistantResponse string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages,
		ai.NewUserMessage(ai.NewTextPart(userInput)),
		ai.NewModelMessage(ai.NewTextPart(assistantResponse)),
	)
	if h.maxMessages > 0 && len(h.messages) > h.maxMessages {
		h.messages = h.messages[len(h.messages)-h.maxMessages:]
	}
}

// Messages returns a copy of the message slice in order.
// The returned slice is independent; callers may append without affecting
// the history (message pointers are shared, callers must not mutate them).
func (h *History) Messages() []*ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*ai.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Store maps session IDs to histories.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*History
	turnLocks   map[string]*sync.Mutex
	maxMessages int
}

// NewStore creates a session store whose histories retain at most
// maxMessages messages each.
func NewStore(maxMessages int) *Store {
	return &Store{
		sessions:    make(map[string]*History),
		turnLocks:   make(map[string]*sync.Mutex),
		maxMessages: maxMessages,
	}
}

// GetOrCreate returns the history for sessionID, creating it on first use.
func (s *Store) GetOrCreate(sessionID string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sessions[sessionID]
	if !ok {
		h = NewHistory(s.maxMessages)
		s.sessions[sessionID] = h
	}
	return h
}

// TurnLock returns the mutex serializing full conversation turns for
// sessionID. Holding it across retrieve-generate-append keeps concurrent
// messages from the same user ordered; other sessions are unaffected.
func (s *Store) TurnLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.turnLocks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.turnLocks[sessionID] = mu
	}
	return mu
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
