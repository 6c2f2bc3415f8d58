package daemon

import (
	"context"
	"sync"
)

// Dispatcher runs functions one at a time on the daemon's event loop.
// With GTK this is the main loop; headless it is a Loop.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to a Dispatcher.
type DispatchFunc func(fn func())

func (f DispatchFunc) Dispatch(fn func()) { f(fn) }

// Inline runs functions immediately on the calling goroutine.
type Inline struct{}

func (Inline) Dispatch(fn func()) { fn() }

// Loop is a single-goroutine event loop with an unbounded queue.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopCh  chan struct{}
	closed  bool
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Dispatch queues fn. Functions queued after Stop are dropped.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued functions in order until ctx is done or Stop is called.
// Functions still queued at Stop are run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			l.drain()
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Stop makes Run return after the queue is drained. Safe to call twice.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.stopCh)
}
