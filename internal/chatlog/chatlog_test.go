package chatlog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppendAndList(t *testing.T) {
	s := NewStore(nil)

	first := s.Append("alice", "where is my order?", "it shipped", 120*time.Millisecond)
	second := s.Append("bob", "refund please", "checking", 80*time.Millisecond)

	entries, total := s.List()
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	// Newest first.
	if entries[0].ID != second.ID {
		t.Errorf("entries[0].ID = %v, want newest entry %v", entries[0].ID, second.ID)
	}
	if entries[1].ID != first.ID {
		t.Errorf("entries[1].ID = %v, want oldest entry %v", entries[1].ID, first.ID)
	}
	if entries[1].Question != "where is my order?" {
		t.Errorf("Question = %q, want original question", entries[1].Question)
	}
	if entries[1].LatencyMillis != 120 {
		t.Errorf("LatencyMillis = %v, want 120", entries[1].LatencyMillis)
	}
	if entries[0].Feedback != nil {
		t.Errorf("new entry Feedback = %v, want nil", *entries[0].Feedback)
	}
}

func TestListReturnsSnapshot(t *testing.T) {
	s := NewStore(nil)
	s.Append("alice", "q1", "a1", time.Millisecond)

	entries, _ := s.List()
	s.Append("alice", "q2", "a2", time.Millisecond)

	if len(entries) != 1 {
		t.Errorf("snapshot len = %d, want 1 unaffected by later appends", len(entries))
	}
}

func TestSetFeedback(t *testing.T) {
	t.Run("records rating", func(t *testing.T) {
		s := NewStore(nil)
		e := s.Append("alice", "q", "a", time.Millisecond)

		if err := s.SetFeedback(e.ID, FeedbackUp); err != nil {
			t.Fatalf("SetFeedback() error = %v", err)
		}
		entries, _ := s.List()
		if entries[0].Feedback == nil || *entries[0].Feedback != FeedbackUp {
			t.Errorf("Feedback = %v, want up", entries[0].Feedback)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		s := NewStore(nil)
		e := s.Append("alice", "q", "a", time.Millisecond)

		if err := s.SetFeedback(e.ID, FeedbackUp); err != nil {
			t.Fatalf("SetFeedback(up) error = %v", err)
		}
		if err := s.SetFeedback(e.ID, FeedbackDown); err != nil {
			t.Fatalf("SetFeedback(down) error = %v", err)
		}
		entries, _ := s.List()
		if *entries[0].Feedback != FeedbackDown {
			t.Errorf("Feedback = %v, want down after overwrite", *entries[0].Feedback)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		s := NewStore(nil)
		if err := s.SetFeedback(uuid.New(), FeedbackUp); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetFeedback() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		s := NewStore(nil)
		e := s.Append("alice", "q", "a", time.Millisecond)
		if err := s.SetFeedback(e.ID, Feedback("sideways")); !errors.Is(err, ErrInvalidFeedback) {
			t.Errorf("SetFeedback() error = %v, want ErrInvalidFeedback", err)
		}
	})
}

func TestFeedbackValid(t *testing.T) {
	tests := []struct {
		fb   Feedback
		want bool
	}{
		{FeedbackUp, true},
		{FeedbackDown, true},
		{Feedback(""), false},
		{Feedback("UP"), false},
	}
	for _, tt := range tests {
		if got := tt.fb.Valid(); got != tt.want {
			t.Errorf("Feedback(%q).Valid() = %v, want %v", tt.fb, got, tt.want)
		}
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				s.Append(fmt.Sprintf("user-%d", i), fmt.Sprintf("q%d", j), "a", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 200 {
		t.Errorf("Len() = %d, want 200", got)
	}
	entries, total := s.List()
	if total != 200 || len(entries) != 200 {
		t.Errorf("List() total = %d len = %d, want 200", total, len(entries))
	}
}
