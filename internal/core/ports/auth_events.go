package ports

import (
	"context"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// AuthEventPublisher announces sign-in and sign-out of identities.
type AuthEventPublisher interface {
	Publish(ctx context.Context, event domain.AuthEvent) error
}

// AuthEventSubscriber delivers auth events until the returned close func is
// called or ctx is cancelled.
type AuthEventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.AuthEvent, func() error, error)
}

// AuthEventHandler applies one auth event. The dispatcher calls it from the
// worker that owns the event's identity.
type AuthEventHandler interface {
	HandleAuthEvent(ctx context.Context, event domain.AuthEvent) error
}

// AuthEventQueue accepts auth events for ordered, per-identity delivery.
type AuthEventQueue interface {
	Enqueue(event domain.AuthEvent)
}
