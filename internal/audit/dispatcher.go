// Package audit fans ledger events out to durable and external consumers:
// an in-memory journal, a gorm-backed event store and a RabbitMQ publisher.
//
// The ledger publishes into a Dispatcher while holding its write lock, so
// Publish never blocks: every handler has its own buffered queue and an
// event that does not fit is dropped with a warning. Events carry a
// sequence number, so consumers can detect the gap.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mymonad/aura/pkg/aura"
)

// DefaultBufferSize is the per-handler queue length.
const DefaultBufferSize = 256

// Handler consumes events. Handle is called from a single goroutine per
// handler, in publish order.
type Handler interface {
	Name() string
	Handle(ctx context.Context, e aura.Event) error
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc struct {
	ID string
	Fn func(ctx context.Context, e aura.Event) error
}

// Name implements Handler.
func (h HandlerFunc) Name() string { return h.ID }

// Handle implements Handler.
func (h HandlerFunc) Handle(ctx context.Context, e aura.Event) error { return h.Fn(ctx, e) }

type subscriber struct {
	handler Handler
	ch      chan aura.Event
}

// Dispatcher delivers events to handlers asynchronously.
type Dispatcher struct {
	logger     *slog.Logger
	bufferSize int

	mu          sync.RWMutex
	subscribers []*subscriber
	running     bool
	closed      bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewDispatcher creates a Dispatcher. bufferSize <= 0 selects DefaultBufferSize.
func NewDispatcher(bufferSize int, logger *slog.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, bufferSize: bufferSize}
}

// Subscribe registers a handler. Handlers must be registered before Start.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subscribers = append(d.subscribers, &subscriber{
		handler: h,
		ch:      make(chan aura.Event, d.bufferSize),
	})
}

// Start launches one delivery goroutine per handler. They drain their
// queues and exit after Close.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running || d.closed {
		return
	}
	d.running = true
	for _, s := range d.subscribers {
		d.wg.Add(1)
		go d.deliver(ctx, s)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s *subscriber) {
	defer d.wg.Done()
	for e := range s.ch {
		if err := s.handler.Handle(ctx, e); err != nil {
			d.failed.Add(1)
			d.logger.Error("audit handler failed",
				"handler", s.handler.Name(),
				"seq", e.Seq,
				"kind", e.Kind,
				"error", err,
			)
		}
	}
}

// Publish implements the ledger's event sink. It never blocks.
func (d *Dispatcher) Publish(e aura.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	for _, s := range d.subscribers {
		select {
		case s.ch <- e:
		default:
			d.dropped.Add(1)
			d.logger.Warn("dropped audit event due to full handler queue",
				"handler", s.handler.Name(),
				"seq", e.Seq,
				"kind", e.Kind,
			)
		}
	}
}

// Dropped returns how many deliveries were dropped on full queues.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Failed returns how many deliveries a handler returned an error for.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

// Close stops accepting events and waits until every queued event was
// handed to its handler.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, s := range d.subscribers {
		close(s.ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
