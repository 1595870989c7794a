package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls how the dispatcher trades completeness for latency.
type Config struct {
	Enabled    bool
	BufferSize int

	// DropIfFull discards events when the buffer is full instead of making
	// the request wait for the sink.
	DropIfFull bool

	// EnqueueTimeout bounds the wait for buffer room when DropIfFull is off.
	// Zero waits until the caller's context ends.
	EnqueueTimeout time.Duration

	// OnDrop is called for every event that never reaches the sink: a full
	// buffer, an expired enqueue wait, a panicking sink or a shutdown that
	// ran out of time.
	OnDrop func(Event, error)
}

// Drop reasons passed to OnDrop.
var (
	ErrBufferFull  = errors.New("audit: buffer full")
	ErrEnqueueWait = errors.New("audit: enqueue wait expired")
	ErrShutdown    = errors.New("audit: shutdown deadline reached")
)

// Dispatcher relays events to a sink from a single goroutine so a slow
// store never sits on the request path for longer than Config allows.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	stop    chan struct{}
	stopped chan struct{}

	dropped  atomic.Uint64
	closing  atomic.Bool
	stopOnce sync.Once
}

// NewDispatcher starts the relay goroutine. It returns nil when auditing is
// disabled; every method is nil-safe.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.stopped)
	for {
		// Shutdown owns the remaining buffer once stop is closed.
		select {
		case <-d.stop:
			return
		default:
		}
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			return
		}
	}
}

// deliver hands ev to the sink. A panicking sink loses the event, not the
// relay.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.drop(ev, fmt.Errorf("audit: sink panic: %v", r))
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

func (d *Dispatcher) drop(ev Event, reason error) {
	d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(ev, reason)
	}
}

// Emit queues ev. Callers stamp events before emitting so the recorded time
// is the time of the outcome, not of the insert.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		default:
			d.drop(ev, ErrBufferFull)
		}
		return
	}

	var expired <-chan time.Time
	if d.cfg.EnqueueTimeout > 0 {
		timer := time.NewTimer(d.cfg.EnqueueTimeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case d.queue <- ev:
	case <-expired:
		d.drop(ev, ErrEnqueueWait)
	case <-ctx.Done():
		d.drop(ev, ctx.Err())
	}
}

// Shutdown stops accepting events and delivers what is buffered until ctx
// ends. Events still queued at the deadline are dropped and reported.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.stopped

		for {
			select {
			case ev := <-d.queue:
				if ctx.Err() != nil {
					d.drop(ev, ErrShutdown)
					continue
				}
				d.deliver(ev)
			default:
				return
			}
		}
	})
}

// Close drains the buffer without a deadline.
func (d *Dispatcher) Close() {
	d.Shutdown(context.Background())
}

// Pending is the number of buffered events not yet delivered.
func (d *Dispatcher) Pending() int {
	if d == nil {
		return 0
	}
	return len(d.queue)
}

// Dropped is the number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
