// Package chatlog records answered conversation turns for the operator API.
//
// Entries accumulate in memory under a write lock; reads return snapshots
// ordered newest first. Feedback is last-write-wins.
package chatlog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for log operations.
var (
	// ErrNotFound indicates the log entry ID does not exist.
	ErrNotFound = errors.New("log entry not found")

	// ErrInvalidFeedback indicates a feedback value outside up/down.
	ErrInvalidFeedback = errors.New("invalid feedback value")
)

// Feedback is an operator rating on an answer.
type Feedback string

// Valid feedback values.
const (
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// Valid reports whether f is one of the accepted ratings.
func (f Feedback) Valid() bool {
	return f == FeedbackUp || f == FeedbackDown
}

// Entry is one answered conversation turn.
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"user_id"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Latency   time.Duration `json:"-"`
	// LatencyMillis mirrors Latency for the wire format (the dashboard
	// displays whole milliseconds).
	LatencyMillis int64 `json:"duration"`
	// Feedback is nil until an operator rates the answer.
	Feedback *Feedback `json:"feedback"`
}

// Store is the in-memory conversation log.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	mu      sync.RWMutex
	entries []*Entry
	byID    map[uuid.UUID]*Entry
	now     func() time.Time
}

// NewStore creates an empty log. now is the entry timestamp clock; nil uses
// time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		byID: make(map[uuid.UUID]*Entry),
		now:  now,
	}
}

// Append records an answered turn and returns the stored entry.
func (s *Store) Append(sessionID, question, answer string, latency time.Duration) *Entry {
	e := &Entry{
		ID:             uuid.New(),
		Timestamp:      s.now(),
		SessionID:      sessionID,
		Question:       question,
		Answer:         answer,
		Latency:       latency,
		LatencyMillis: latency.Milliseconds(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.byID[e.ID] = e
	return e
}

// List returns a snapshot of all entries ordered newest first, plus the
// total count. Later mutations do not affect the returned slice.
func (s *Store) List() ([]Entry, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = *e
	}
	return out, len(out)
}

// SetFeedback records an operator rating on an entry. Repeated calls
// overwrite the previous rating (last write wins).
// Returns ErrNotFound for unknown IDs and ErrInvalidFeedback for values
// outside up/down.
func (s *Store) SetFeedback(id uuid.UUID, fb Feedback) error {
	if !fb.Valid() {
		return ErrInvalidFeedback
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	e.Feedback = &fb
	return nil
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
