package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// blockingResolver returns its user only after release is closed.
type blockingResolver struct {
	user    *domain.User
	err     error
	release chan struct{}
}

func (r *blockingResolver) GetUserByID(ctx context.Context, _ string) (*domain.User, error) {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.user, r.err
}

func receive(t *testing.T, ch <-chan domain.AuthState) domain.AuthState {
	t.Helper()
	select {
	case st, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return st
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for auth state")
	}
	return domain.AuthState{}
}

func TestAuthStateContext_LoadingThenAuthenticated(t *testing.T) {
	resolver := &blockingResolver{user: &domain.User{ID: "uid-ana", Name: "Ana"}, release: make(chan struct{})}
	sc := NewAuthStateContext("uid-ana", domain.SignedOutState(), resolver, zerolog.Nop())
	ch, unsubscribe := sc.Subscribe()
	defer unsubscribe()

	if st := receive(t, ch); st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected initial signed-out state, got %+v", st)
	}

	done := make(chan error, 1)
	go func() { done <- sc.Handle(context.Background(), domain.AuthEvent{IdentityID: "uid-ana", SignedIn: true}) }()

	loading := receive(t, ch)
	if !loading.IsLoading || loading.Status != domain.StatusAuthenticating {
		t.Fatalf("expected loading state, got %+v", loading)
	}

	close(resolver.release)
	if err := <-done; err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	st := receive(t, ch)
	if !st.IsAuthenticated || st.IsLoading || st.User == nil || st.User.ID != "uid-ana" {
		t.Fatalf("expected authenticated state, got %+v", st)
	}
}

func TestAuthStateContext_ResolveFailureSignsOut(t *testing.T) {
	for name, resolver := range map[string]*blockingResolver{
		"error":   {err: errors.New("mongo down")},
		"missing": {},
	} {
		t.Run(name, func(t *testing.T) {
			sc := NewAuthStateContext("uid-ana", domain.LoadingState(), resolver, zerolog.Nop())
			_ = sc.Handle(context.Background(), domain.AuthEvent{IdentityID: "uid-ana", SignedIn: true})

			st := sc.Current()
			if st.IsAuthenticated || st.IsLoading || st.User != nil {
				t.Fatalf("expected signed-out state, got %+v", st)
			}
		})
	}
}

func TestAuthStateContext_SlowSubscriberGetsLatest(t *testing.T) {
	sc := NewAuthStateContext("uid-ana", domain.LoadingState(), &blockingResolver{}, zerolog.Nop())
	ch, unsubscribe := sc.Subscribe()
	defer unsubscribe()

	sc.publish(domain.SignedOutState())
	sc.publish(domain.SignedInState(&domain.User{ID: "uid-ana"}))

	st := receive(t, ch)
	if !st.IsAuthenticated {
		t.Fatalf("expected latest state, got %+v", st)
	}
}

func TestAuthStateContext_Close(t *testing.T) {
	sc := NewAuthStateContext("uid-ana", domain.SignedOutState(), &blockingResolver{}, zerolog.Nop())
	ch, unsubscribe := sc.Subscribe()
	<-ch

	sc.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	unsubscribe()

	sc.publish(domain.SignedInState(&domain.User{ID: "uid-ana"}))
	if sc.Current().IsAuthenticated {
		t.Fatalf("closed context must ignore new states")
	}
}

func TestAuthStateHub_SubscribeSeedsFromCache(t *testing.T) {
	cache := newStubCache()
	_ = cache.Store(context.Background(), "uid-ana", "tok", &domain.User{ID: "uid-ana"}, time.Hour)
	hub := NewAuthStateHub(&blockingResolver{}, cache, zerolog.Nop())

	ch, unsubscribe := hub.Subscribe(context.Background(), "uid-ana")
	defer unsubscribe()

	if st := receive(t, ch); !st.IsAuthenticated || st.User.ID != "uid-ana" {
		t.Fatalf("expected cached signed-in state, got %+v", st)
	}
}

func TestAuthStateHub_SubscribeResolvesOnMiss(t *testing.T) {
	resolver := &blockingResolver{user: &domain.User{ID: "uid-ana"}}
	hub := NewAuthStateHub(resolver, newStubCache(), zerolog.Nop())

	ch, unsubscribe := hub.Subscribe(context.Background(), "uid-ana")
	defer unsubscribe()

	// Without a queue the synthetic sign-in is handled inline, so the first
	// receive may already see the resolved state.
	st := receive(t, ch)
	if st.IsLoading {
		st = receive(t, ch)
	}
	if !st.IsAuthenticated {
		t.Fatalf("expected authenticated state, got %+v", st)
	}
}

func TestAuthStateHub_LastUnsubscribeDisposes(t *testing.T) {
	hub := NewAuthStateHub(&blockingResolver{}, newStubCache(), zerolog.Nop())

	_, unsubA := hub.Subscribe(context.Background(), "uid-ana")
	_, unsubB := hub.Subscribe(context.Background(), "uid-ana")

	unsubA()
	if _, ok := hub.contexts["uid-ana"]; !ok {
		t.Fatalf("context must survive while a subscriber remains")
	}
	unsubB()
	unsubB()
	if _, ok := hub.contexts["uid-ana"]; ok {
		t.Fatalf("expected context to be removed")
	}
}

func TestAuthStateHub_HandleAuthEventWithoutObserver(t *testing.T) {
	hub := NewAuthStateHub(&blockingResolver{}, newStubCache(), zerolog.Nop())
	if err := hub.HandleAuthEvent(context.Background(), domain.AuthEvent{IdentityID: "uid-ana", SignedIn: true}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if len(hub.contexts) != 0 {
		t.Fatalf("events must not create contexts")
	}
}

type chanSubscriber struct {
	ch     chan domain.AuthEvent
	closed chan struct{}
}

func (s *chanSubscriber) Subscribe(context.Context) (<-chan domain.AuthEvent, func() error, error) {
	return s.ch, func() error { close(s.closed); return nil }, nil
}

func TestAuthStateHub_Run(t *testing.T) {
	resolver := &blockingResolver{user: &domain.User{ID: "uid-ana"}}
	cache := newStubCache()
	_ = cache.Store(context.Background(), "uid-ana", "tok", &domain.User{ID: "uid-ana"}, time.Hour)
	hub := NewAuthStateHub(resolver, cache, zerolog.Nop())
	sub := &chanSubscriber{ch: make(chan domain.AuthEvent, 1), closed: make(chan struct{})}

	ch, _ := hub.Subscribe(context.Background(), "uid-ana")
	receive(t, ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, sub) }()

	sub.ch <- domain.AuthEvent{IdentityID: "uid-ana", SignedIn: false}
	if st := receive(t, ch); st.IsAuthenticated {
		t.Fatalf("expected signed-out state, got %+v", st)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	select {
	case <-sub.closed:
	default:
		t.Fatalf("expected subscription to be closed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber channel to be closed on shutdown")
	}
}
