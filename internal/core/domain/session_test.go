package domain

import (
	"errors"
	"testing"
)

func TestSessionStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to SessionStatus
		ok       bool
	}{
		{StatusUnauthenticated, StatusAuthenticating, true},
		{StatusAuthenticating, StatusAuthenticated, true},
		{StatusAuthenticating, StatusError, true},
		{StatusAuthenticated, StatusUnauthenticated, true},
		{StatusError, StatusAuthenticating, true},
		{StatusUnauthenticated, StatusAuthenticated, false},
		{StatusAuthenticated, StatusAuthenticating, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestSessionMachine_RecordsMoves(t *testing.T) {
	var moves []string
	m := NewSessionMachine(StatusUnauthenticated, func(from, to SessionStatus) {
		moves = append(moves, string(from)+">"+string(to))
	})

	if err := m.Move(StatusAuthenticating); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cause := errors.New("boom")
	if err := m.Fail(cause); err != cause {
		t.Fatalf("Fail must return the cause, got %v", err)
	}
	if m.Status() != StatusError || m.Err() != cause {
		t.Fatalf("unexpected machine state: %s %v", m.Status(), m.Err())
	}
	if len(moves) != 2 || moves[1] != "authenticating>error" {
		t.Fatalf("unexpected moves: %v", moves)
	}
}

func TestSessionMachine_RejectsInvalidMove(t *testing.T) {
	m := NewSessionMachine(StatusUnauthenticated, nil)
	if err := m.Move(StatusAuthenticated); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if m.Status() != StatusUnauthenticated {
		t.Fatalf("status changed on rejected move: %s", m.Status())
	}
}
