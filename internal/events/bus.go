package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"enton/internal/logging"
)

// Handler processes one event. Errors are logged; they never stop dispatch.
type Handler func(ctx context.Context, ev Event) error

// DefaultQueueSize is the bus queue capacity used when NewBus gets size <= 0.
const DefaultQueueSize = 256

// Bus queues events and dispatches them to per-kind handlers from a single
// goroutine (Run).
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler

	queue chan Event

	emitted    atomic.Uint64
	dropped    atomic.Uint64
	dispatched atomic.Uint64
	failures   atomic.Uint64
}

// NewBus creates a bus with a buffered queue of the given size.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Bus{
		handlers: make(map[Kind][]Handler),
		queue:    make(chan Event, size),
	}
}

// On registers a handler for an event kind. Handlers run in registration order.
func (b *Bus) On(kind Kind, h Handler) {
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], h)
	b.mu.Unlock()
}

// Emit enqueues ev, blocking while the queue is full until ctx is done.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	select {
	case b.queue <- ev:
		b.emitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmitNowait enqueues ev without blocking. It returns false and drops the
// event when the queue is full.
func (b *Bus) EmitNowait(ev Event) bool {
	select {
	case b.queue <- ev:
		b.emitted.Add(1)
		return true
	default:
		b.dropped.Add(1)
		logging.EventsWarn("queue full, dropped %s event", ev.Kind())
		return false
	}
}

// Run dispatches queued events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	logging.Events("event bus started")
	for {
		select {
		case <-ctx.Done():
			logging.Events("event bus stopped")
			return nil
		case ev := <-b.queue:
			b.Dispatch(ctx, ev)
		}
	}
}

// Dispatch delivers ev synchronously to its handlers. Handlers may call On.
func (b *Bus) Dispatch(ctx context.Context, ev Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[ev.Kind()]...)
	b.mu.RUnlock()

	for _, h := range hs {
		if err := b.invoke(ctx, h, ev); err != nil {
			b.failures.Add(1)
			logging.EventsError("handler error for %s: %v", ev.Kind(), err)
		}
	}
	b.dispatched.Add(1)
}

func (b *Bus) invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// Stats holds bus counters.
type Stats struct {
	Emitted         uint64
	Dropped         uint64
	Dispatched      uint64
	HandlerFailures uint64
	Queued          int
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		Emitted:         b.emitted.Load(),
		Dropped:         b.dropped.Load(),
		Dispatched:      b.dispatched.Load(),
		HandlerFailures: b.failures.Load(),
		Queued:          len(b.queue),
	}
}
