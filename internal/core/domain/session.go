package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the state of a register/login/logout attempt.
type SessionStatus string

const (
	StatusUnauthenticated SessionStatus = "unauthenticated"
	StatusAuthenticating  SessionStatus = "authenticating"
	StatusAuthenticated   SessionStatus = "authenticated"
	StatusError           SessionStatus = "error"
)

var validTransitions = map[SessionStatus][]SessionStatus{
	StatusUnauthenticated: {StatusAuthenticating},
	StatusAuthenticating:  {StatusAuthenticated, StatusError},
	StatusAuthenticated:   {StatusUnauthenticated},
	StatusError:           {StatusAuthenticating, StatusUnauthenticated},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SessionMachine tracks one attempt through the session states.
type SessionMachine struct {
	status  SessionStatus
	onMove  func(from, to SessionStatus)
	lastErr error
}

// NewSessionMachine starts in from. onMove may be nil.
func NewSessionMachine(from SessionStatus, onMove func(from, to SessionStatus)) *SessionMachine {
	return &SessionMachine{status: from, onMove: onMove}
}

func (m *SessionMachine) Status() SessionStatus { return m.status }

// Err is the error that moved the machine to StatusError, if any.
func (m *SessionMachine) Err() error { return m.lastErr }

// Move transitions to next or returns ErrInvalidTransition.
func (m *SessionMachine) Move(next SessionStatus) error {
	if !m.status.CanTransitionTo(next) {
		return fmt.Errorf("%w (from %s to %s)", ErrInvalidTransition, m.status, next)
	}
	prev := m.status
	m.status = next
	if m.onMove != nil {
		m.onMove(prev, next)
	}
	return nil
}

// Fail moves to StatusError and returns cause unchanged.
func (m *SessionMachine) Fail(cause error) error {
	m.lastErr = cause
	if m.status != StatusError {
		_ = m.Move(StatusError)
	}
	return cause
}

// AuthEvent is an auth-state change notification for one identity.
type AuthEvent struct {
	IdentityID string    `json:"identity_id"`
	SignedIn   bool      `json:"signed_in"`
	At         time.Time `json:"at"`
}

// AuthState is what observers of an identity's session see.
type AuthState struct {
	Status          SessionStatus `json:"status"`
	User            *User         `json:"user"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsLoading       bool          `json:"is_loading"`
}

// LoadingState is published while a profile is being resolved.
func LoadingState() AuthState {
	return AuthState{Status: StatusAuthenticating, IsLoading: true}
}

// SignedOutState is published when no identity is signed in.
func SignedOutState() AuthState {
	return AuthState{Status: StatusUnauthenticated}
}

// SignedInState is published once the profile for a signed-in identity resolves.
func SignedInState(u *User) AuthState {
	return AuthState{Status: StatusAuthenticated, User: u, IsAuthenticated: true}
}
