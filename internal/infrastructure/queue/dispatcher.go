package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes auth events to a fixed set of workers using consistent
// hashing on the identity id. Each identity maps to one worker, so its events
// are applied in order and one at a time.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	handler ports.AuthEventHandler
	log     zerolog.Logger
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.AuthEventHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		close(d.done)
	}()
}

// Enqueue sends an event to the worker responsible for its identity.
// The call is non-blocking up to channelBuffer capacity. Once the workers
// have stopped, events are dropped instead of blocking the caller.
func (d *Dispatcher) Enqueue(event domain.AuthEvent) {
	idx := d.shardIndex(event.IdentityID)
	select {
	case <-d.done:
		d.drop(event, idx)
		return
	default:
	}
	select {
	case d.workers[idx] <- event:
	case <-d.done:
		d.drop(event, idx)
		return
	}
	metrics.AuthStateQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

func (d *Dispatcher) drop(event domain.AuthEvent, idx int) {
	d.log.Warn().Str("identity_id", event.IdentityID).Int("worker_id", idx).Msg("dispatcher stopped, auth event dropped")
}

// shardIndex maps an identity id deterministically to a worker index.
func (d *Dispatcher) shardIndex(identityID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identityID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	depth := metrics.AuthStateQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if err := d.handler.HandleAuthEvent(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("identity_id", event.IdentityID).
					Bool("signed_in", event.SignedIn).
					Int("worker_id", id).
					Msg("auth event handling failed")
			}
		}
	}
}
