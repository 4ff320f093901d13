package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher defaults.
const (
	DefaultQueueSize   = 1024
	DefaultSinkTimeout = 5 * time.Second
)

var (
	// ErrQueueFull is returned when the dispatcher cannot take another event.
	ErrQueueFull = errors.New("notify: event queue full")
	// ErrDispatcherClosed is returned for events handed over after Close.
	ErrDispatcherClosed = errors.New("notify: dispatcher closed")
)

// Dispatcher queues events and delivers them to the wrapped notifier from a
// single background worker, in order. Notify never blocks on the sink.
// Delivery failures are logged and dropped.
type Dispatcher struct {
	next    Notifier
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewDispatcher starts a worker delivering to next. Each delivery gets
// timeout; a non-positive size or timeout uses the defaults.
func NewDispatcher(next Notifier, size int, timeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	d := &Dispatcher{
		next:    next,
		timeout: timeout,
		queue:   make(chan Event, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues ev. It returns ErrQueueFull or ErrDispatcherClosed instead
// of waiting.
func (d *Dispatcher) Notify(_ context.Context, ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the queued ones have been
// delivered or ctx ends. Calling it more than once is fine.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.next.Notify(ctx, ev); err != nil {
		slog.Warn("notification failed", "event_id", ev.ID, "type", ev.Type, "record_id", ev.RecordID, "error", err)
	}
}
