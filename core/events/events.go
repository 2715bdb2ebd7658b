// Package events carries post-write domain events from the repositories to
// their subscribers. Events are queued in memory and drained by a worker pool.
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrazmi/devcamper/infrastructure/workers"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Kind is what happened to an item.
type Kind string

const (
	ItemCreated Kind = "item.created"
	ItemUpdated Kind = "item.updated"
	ItemDeleted Kind = "item.deleted"
)

// Event records a write to one item of a collection. ParentID names the
// item the written one belongs to, when there is one.
type Event struct {
	ID         string
	Kind       Kind
	Collection string
	ItemID     string
	ParentID   string
	OccurredAt time.Time
}

func (e Event) GetID() string {
	return e.ID
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Kind, e.Collection, e.ItemID)
}

// Publisher accepts events after a successful write.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler reacts to an event. Handlers may run more than once for the same
// event and must be idempotent.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	name       string
	collection string
	kinds      []Kind
	handle     Handler
}

func (s subscription) matches(e Event) bool {
	return s.collection == e.Collection && (len(s.kinds) == 0 || slices.Contains(s.kinds, e.Kind))
}

// Bus queues published events and dispatches them to subscribers. It is the
// workers.Processor of the events pool.
type Bus struct {
	log *logger.Logger

	mu       sync.Mutex
	queue    []Event
	inflight int
	subs     []subscription
	ready    chan struct{}
}

// NewBus constructs an empty bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		log:   log,
		ready: make(chan struct{}, 1),
	}
}

// Subscribe routes events on collection to h. No kinds means every kind.
func (b *Bus) Subscribe(name, collection string, h Handler, kinds ...Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, collection: collection, kinds: kinds, handle: h})
}

// Publish queues e.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	b.queue = append(b.queue, e)
	b.mu.Unlock()

	b.log.DebugContext(ctx, "event published", "event", e.String(), "event_id", e.ID)

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Ready signals that an event was queued.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Pending reports queued plus in-flight events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue) + b.inflight
}

func (b *Bus) Checkout(ctx context.Context, workerID string) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return Event{}, workers.ErrNoWorkAvailable
	}
	e := b.queue[0]
	b.queue = b.queue[1:]
	b.inflight++
	return e, nil
}

// Process runs every matching subscriber. Failures are joined so one
// subscriber cannot hide another's.
func (b *Bus) Process(ctx context.Context, e Event) (Event, error) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if !s.matches(e) {
			continue
		}
		if err := s.handle(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return e, errors.Join(errs...)
}

func (b *Bus) Complete(ctx context.Context, e Event, processingTimeMS int) error {
	b.done()
	b.log.DebugContext(ctx, "event handled", "event", e.String(), "event_id", e.ID, "ms", processingTimeMS)
	return nil
}

func (b *Bus) Fail(ctx context.Context, e Event, err error) error {
	b.done()
	b.log.ErrorContext(ctx, "event handling failed", "event", e.String(), "event_id", e.ID, "error", err)
	return nil
}

func (b *Bus) done() {
	b.mu.Lock()
	b.inflight--
	b.mu.Unlock()
}

// Drain dispatches every queued event on the calling goroutine. It is used
// after the pool has stopped and by tests that run without a pool.
func (b *Bus) Drain(ctx context.Context) error {
	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := b.Checkout(ctx, "drain")
		if errors.Is(err, workers.ErrNoWorkAvailable) {
			return errors.Join(errs...)
		}
		if _, err := b.Process(ctx, e); err != nil {
			errs = append(errs, err)
			_ = b.Fail(ctx, e, err)
			continue
		}
		_ = b.Complete(ctx, e, 0)
	}
}

// Wait blocks until nothing is queued or in flight.
func (b *Bus) Wait(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for b.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
