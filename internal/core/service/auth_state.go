package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

// ProfileResolver loads the profile for a signed-in identity.
type ProfileResolver interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthStateContext holds the observable auth state of one identity.
// Subscribers get the current state on subscribe and every later state in
// publication order; a subscriber that falls behind only keeps the newest.
type AuthStateContext struct {
	identityID string
	resolver   ProfileResolver
	logger     zerolog.Logger

	mu     sync.RWMutex
	state  domain.AuthState
	subs   map[int]chan domain.AuthState
	nextID int
	closed bool
}

func NewAuthStateContext(identityID string, initial domain.AuthState, resolver ProfileResolver, logger zerolog.Logger) *AuthStateContext {
	return &AuthStateContext{
		identityID: identityID,
		resolver:   resolver,
		logger:     logger.With().Str("identity_id", identityID).Logger(),
		state:      initial,
		subs:       make(map[int]chan domain.AuthState),
	}
}

func (c *AuthStateContext) Current() domain.AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe returns a channel that is closed by unsubscribe or Close.
func (c *AuthStateContext) Subscribe() (<-chan domain.AuthState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan domain.AuthState, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *AuthStateContext) subscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Handle applies one auth event. A signed-in event publishes a loading state,
// resolves the profile, then publishes the signed-in state. Resolution
// failure or a missing profile is published as signed out.
func (c *AuthStateContext) Handle(ctx context.Context, event domain.AuthEvent) error {
	if !event.SignedIn {
		c.publish(domain.SignedOutState())
		return nil
	}

	c.publish(domain.LoadingState())

	start := time.Now()
	user, err := c.resolver.GetUserByID(ctx, c.identityID)
	switch {
	case err != nil:
		metrics.ProfileResolveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		c.publish(domain.SignedOutState())
		return err
	case user == nil:
		metrics.ProfileResolveDuration.WithLabelValues("missing").Observe(time.Since(start).Seconds())
		c.logger.Warn().Msg("signed-in identity has no profile")
		c.publish(domain.SignedOutState())
		return nil
	}

	metrics.ProfileResolveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	c.publish(domain.SignedInState(user))
	return nil
}

func (c *AuthStateContext) publish(state domain.AuthState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state = state
	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
			// Replace the undelivered state; only this method sends, under mu.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

// Close closes every subscriber channel. Later events are ignored.
func (c *AuthStateContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// AuthStateHub owns the auth-state contexts of all observed identities.
// A context exists while it has at least one subscriber.
type AuthStateHub struct {
	resolver ProfileResolver
	cache    ports.SessionCache
	logger   zerolog.Logger

	mu       sync.Mutex
	queue    ports.AuthEventQueue
	contexts map[string]*AuthStateContext
}

func NewAuthStateHub(resolver ProfileResolver, cache ports.SessionCache, logger zerolog.Logger) *AuthStateHub {
	return &AuthStateHub{
		resolver: resolver,
		cache:    cache,
		logger:   logger,
		contexts: make(map[string]*AuthStateContext),
	}
}

// UseQueue routes events through q. Without a queue events are handled on
// the calling goroutine.
func (h *AuthStateHub) UseQueue(q ports.AuthEventQueue) {
	h.mu.Lock()
	h.queue = q
	h.mu.Unlock()
}

// Snapshot returns the current state for identityID without registering an
// observer.
func (h *AuthStateHub) Snapshot(ctx context.Context, identityID string) (domain.AuthState, error) {
	h.mu.Lock()
	sc, ok := h.contexts[identityID]
	h.mu.Unlock()
	if ok {
		return sc.Current(), nil
	}

	if u := h.cachedUser(ctx, identityID); u != nil {
		return domain.SignedInState(u), nil
	}

	user, err := h.resolver.GetUserByID(ctx, identityID)
	if err != nil {
		return domain.AuthState{}, err
	}
	if user == nil {
		return domain.SignedOutState(), nil
	}
	return domain.SignedInState(user), nil
}

// Subscribe observes identityID. The first subscriber creates the context,
// seeded from the session cache; on a miss it starts loading and queues a
// sign-in so the profile gets resolved. The last unsubscribe disposes of it.
func (h *AuthStateHub) Subscribe(ctx context.Context, identityID string) (<-chan domain.AuthState, func()) {
	h.mu.Lock()
	sc, ok := h.contexts[identityID]
	h.mu.Unlock()

	initial := domain.LoadingState()
	seeded := false
	if !ok {
		if u := h.cachedUser(ctx, identityID); u != nil {
			initial = domain.SignedInState(u)
			seeded = true
		}
	}

	h.mu.Lock()
	sc, ok = h.contexts[identityID]
	created := !ok
	if created {
		sc = NewAuthStateContext(identityID, initial, h.resolver, h.logger)
		h.contexts[identityID] = sc
	}
	ch, unsubscribe := sc.Subscribe()
	h.mu.Unlock()

	metrics.AuthStateSubscribers.Inc()
	if created && !seeded {
		h.dispatch(ctx, domain.AuthEvent{IdentityID: identityID, SignedIn: true, At: time.Now().UTC()})
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			metrics.AuthStateSubscribers.Dec()

			h.mu.Lock()
			defer h.mu.Unlock()
			if h.contexts[identityID] == sc && sc.subscriberCount() == 0 {
				delete(h.contexts, identityID)
				sc.Close()
			}
		})
	}
}

// HandleAuthEvent applies event to the identity's context, if anyone is
// observing it.
func (h *AuthStateHub) HandleAuthEvent(ctx context.Context, event domain.AuthEvent) error {
	h.mu.Lock()
	sc, ok := h.contexts[event.IdentityID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	kind := "signed_out"
	if event.SignedIn {
		kind = "signed_in"
	}
	metrics.AuthStateNotificationsTotal.WithLabelValues(kind).Inc()
	return sc.Handle(ctx, event)
}

// Run forwards events from the subscriber until ctx is cancelled, then
// closes the subscription and every context.
func (h *AuthStateHub) Run(ctx context.Context, events ports.AuthEventSubscriber) error {
	stream, closeFn, err := events.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to close auth event subscription")
		}
		h.closeAll()
	}()

	h.logger.Info().Msg("auth state hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("auth state hub stopped")
			return nil
		case event, ok := <-stream:
			if !ok {
				h.logger.Warn().Msg("auth event stream closed")
				return nil
			}
			h.dispatch(ctx, event)
		}
	}
}

func (h *AuthStateHub) dispatch(ctx context.Context, event domain.AuthEvent) {
	h.mu.Lock()
	q := h.queue
	h.mu.Unlock()

	if q != nil {
		q.Enqueue(event)
		return
	}
	if err := h.HandleAuthEvent(ctx, event); err != nil {
		h.logger.Error().Err(err).Str("identity_id", event.IdentityID).Msg("auth event handling failed")
	}
}

func (h *AuthStateHub) cachedUser(ctx context.Context, identityID string) *domain.User {
	u, err := h.cache.CachedUser(ctx, identityID)
	if err != nil {
		h.logger.Warn().Err(err).Str("identity_id", identityID).Msg("session cache read failed")
		return nil
	}
	return u
}

func (h *AuthStateHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sc := range h.contexts {
		delete(h.contexts, id)
		sc.Close()
	}
}
