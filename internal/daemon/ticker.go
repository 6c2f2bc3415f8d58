package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ticker runs a function on the event loop at a fixed interval.
// The goroutine only ticks; the work itself is dispatched.
type Ticker struct {
	mu     sync.RWMutex
	logger *slog.Logger

	name     string
	interval time.Duration
	dispatch Dispatcher
	fn       func()

	// Control channels
	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewTicker creates a stopped ticker.
func NewTicker(name string, interval time.Duration, dispatch Dispatcher, fn func(), logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		logger:   logger,
		name:     name,
		interval: interval,
		dispatch: dispatch,
		fn:       fn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the ticker name used in logs.
func (t *Ticker) Name() string {
	return t.name
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interval
}

// SetInterval changes the interval, restarting the ticker if it is running.
func (t *Ticker) SetInterval(ctx context.Context, interval time.Duration) {
	t.mu.Lock()
	if interval <= 0 || interval == t.interval {
		t.mu.Unlock()
		return
	}
	t.interval = interval
	running := t.running
	t.mu.Unlock()

	if running {
		t.Stop()
		t.Start(ctx)
	}
}

// Start begins ticking. Calling Start on a running ticker does nothing.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	interval := t.interval
	t.mu.Unlock()

	go t.loop(ctx, interval)

	t.logger.Debug("timer started", "timer", t.name, "interval", interval)
}

// Stop stops ticking and waits for the goroutine to exit.
// Work already dispatched may still run.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	doneCh := t.doneCh
	t.mu.Unlock()

	<-doneCh
	t.logger.Debug("timer stopped", "timer", t.name)
}

// Running reports whether the ticker is started.
func (t *Ticker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func (t *Ticker) loop(ctx context.Context, interval time.Duration) {
	t.mu.RLock()
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.RUnlock()
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			t.dispatch.Dispatch(func() {
				// A stop that raced with this tick wins
				if t.Running() {
					t.fn()
				}
			})
		}
	}
}

// Timers is a set of tickers started and stopped together.
type Timers struct {
	mu      sync.Mutex
	tickers []*Ticker
}

// Add registers a ticker with the set.
func (ts *Timers) Add(t *Ticker) *Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tickers = append(ts.tickers, t)
	return t
}

// StopAll stops every ticker in the set.
func (ts *Timers) StopAll() {
	ts.mu.Lock()
	tickers := append([]*Ticker(nil), ts.tickers...)
	ts.mu.Unlock()

	for _, t := range tickers {
		t.Stop()
	}
}

// Running returns the names of the running tickers.
func (ts *Timers) Running() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var names []string
	for _, t := range ts.tickers {
		if t.Running() {
			names = append(names, t.name)
		}
	}
	return names
}
