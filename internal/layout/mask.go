package layout

import (
	"sync"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// MaskTracker coalesces content geometry changes into mask updates.
//
// Observe may be called for every x/y/width/height change; Flush applies
// only the latest geometry, and only if it differs from what was last
// applied successfully.
type MaskTracker struct {
	mu         sync.Mutex
	latest     model.Rect
	observed   bool
	applied    model.Rect
	hasApplied bool
}

// NewMaskTracker creates an empty tracker.
func NewMaskTracker() *MaskTracker {
	return &MaskTracker{}
}

// Observe records the content bounds reported by the UI.
func (m *MaskTracker) Observe(bounds model.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = bounds
	m.observed = true
}

// Pending reports whether the latest geometry has not been applied yet.
func (m *MaskTracker) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked()
}

func (m *MaskTracker) pendingLocked() bool {
	return m.observed && (!m.hasApplied || m.applied != m.latest)
}

// Applied returns the last mask applied successfully.
func (m *MaskTracker) Applied() (model.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied, m.hasApplied
}

// Flush applies the latest geometry through apply if it is pending.
// On error the previous mask stays current and the geometry remains
// pending for the next flush.
func (m *MaskTracker) Flush(apply func(model.Rect) error) (bool, error) {
	m.mu.Lock()
	if !m.pendingLocked() {
		m.mu.Unlock()
		return false, nil
	}
	target := m.latest
	m.mu.Unlock()

	if err := apply(target); err != nil {
		return false, err
	}

	m.mu.Lock()
	m.applied = target
	m.hasApplied = true
	m.mu.Unlock()
	return true, nil
}

// Reset forgets the applied mask, forcing the next flush to apply.
func (m *MaskTracker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasApplied = false
}
