package conversation

import (
	"testing"

	"github.com/redinsight/agent/internal/models"
)

func TestWindowReturnsLastTurns(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"one", "two", "three", "four"} {
		s.Append("sess", models.ConversationTurn{Role: "user", Text: text})
	}

	window := s.Window("sess", 2)
	if len(window) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(window))
	}
	if window[0].Text != "three" || window[1].Text != "four" {
		t.Errorf("expected the most recent turns oldest-first, got %+v", window)
	}
}

func TestWindowIsolatesSessions(t *testing.T) {
	s := NewStore()
	s.Append("a", models.ConversationTurn{Role: "user", Text: "hello"})

	if got := s.Window("b", 5); len(got) != 0 {
		t.Errorf("unknown session must have empty history, got %d turns", len(got))
	}
	if s.Len("a") != 1 {
		t.Errorf("expected 1 turn in session a, got %d", s.Len("a"))
	}
}

func TestAppendStampsTime(t *testing.T) {
	s := NewStore()
	s.Append("sess", models.ConversationTurn{Role: "agent", Text: "hi"})

	turns := s.Window("sess", 1)
	if turns[0].At.IsZero() {
		t.Error("append must stamp an unset timestamp")
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Append("sess", models.ConversationTurn{Role: "user", Text: "hello"})
	s.Clear("sess")

	if s.Len("sess") != 0 {
		t.Error("clear must discard the session history")
	}
}

func TestWindowReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("sess", models.ConversationTurn{Role: "user", Text: "original"})

	window := s.Window("sess", 5)
	window[0].Text = "mutated"

	if s.Window("sess", 5)[0].Text != "original" {
		t.Error("mutating a returned window must not affect the store")
	}
}
