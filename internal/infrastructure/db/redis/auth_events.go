package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// AuthStateChannel carries JSON-encoded domain.AuthEvent messages.
const AuthStateChannel = keyPrefix + ":auth_state"

const eventBuffer = 64

// AuthEventBus publishes and subscribes to auth events over Redis pub/sub, so
// every API instance sees sign-ins and sign-outs made on any other.
type AuthEventBus struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewAuthEventBus(client *redis.Client, log zerolog.Logger) *AuthEventBus {
	return &AuthEventBus{client: client, log: log}
}

func (b *AuthEventBus) Publish(ctx context.Context, event domain.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := b.client.Publish(ctx, AuthStateChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription before returning. The event channel is
// closed when ctx is done or the returned close func is called.
func (b *AuthEventBus) Subscribe(ctx context.Context) (<-chan domain.AuthEvent, func() error, error) {
	ps := b.client.Subscribe(ctx, AuthStateChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", AuthStateChannel, err)
	}

	out := make(chan domain.AuthEvent, eventBuffer)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := decodeEvent(msg.Payload)
				if err != nil {
					b.log.Warn().Err(err).Msg("dropping malformed auth event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, ps.Close, nil
}

func decodeEvent(payload string) (domain.AuthEvent, error) {
	var event domain.AuthEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.AuthEvent{}, fmt.Errorf("decode auth event: %w", err)
	}
	if event.IdentityID == "" {
		return domain.AuthEvent{}, fmt.Errorf("decode auth event: missing identity_id")
	}
	return event, nil
}
