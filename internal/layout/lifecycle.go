package layout

import (
	"fmt"
	"sync"
	"time"
)

// Phase is a stage of the overlay window lifecycle.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseContentLoading
	PhaseContentReady
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseContentLoading:
		return "content-loading"
	case PhaseContentReady:
		return "content-ready"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Lifecycle tracks Created -> ContentLoading -> ContentReady.
// The window is shown only on entering ContentReady.
type Lifecycle struct {
	mu        sync.Mutex
	phase     Phase
	createdAt time.Time
	readyAt   time.Time
	timedOut  bool
}

// NewLifecycle starts in PhaseCreated.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{phase: PhaseCreated, createdAt: time.Now()}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Ready reports whether content is ready.
func (l *Lifecycle) Ready() bool {
	return l.Phase() == PhaseContentReady
}

// BeginLoading moves Created to ContentLoading. Other phases are left alone.
func (l *Lifecycle) BeginLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseCreated {
		return false
	}
	l.phase = PhaseContentLoading
	return true
}

// MarkReady enters ContentReady. It returns true only for the first
// transition, which is when the caller applies the mask and shows the window.
// Ready after a timeout is still accepted.
func (l *Lifecycle) MarkReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseContentReady || l.phase == PhaseClosed {
		return false
	}
	l.phase = PhaseContentReady
	l.readyAt = time.Now()
	return true
}

// Timeout records that the ready deadline passed. It returns true if
// content was not ready, which is when diagnostics should be emitted.
func (l *Lifecycle) Timeout() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseContentReady || l.phase == PhaseClosed {
		return false
	}
	l.timedOut = true
	return true
}

// TimedOut reports whether the ready deadline passed before content was ready.
func (l *Lifecycle) TimedOut() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timedOut
}

// Close ends the lifecycle. Returns false if already closed.
func (l *Lifecycle) Close() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseClosed {
		return false
	}
	l.phase = PhaseClosed
	return true
}

// Since returns how long the window has existed.
func (l *Lifecycle) Since() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.createdAt)
}
