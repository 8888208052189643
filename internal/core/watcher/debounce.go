package watcher

import (
	"sync"
	"time"

	"dotdeploy/internal/core/config"
)

// DebounceState is the point-in-time state of the debouncer. A zero
// LastTrigger means no batch has been admitted yet.
type DebounceState struct {
	LastTrigger time.Time
	Window      time.Duration
}

// Debouncer admits at most one batch per window. Rejected batches are
// dropped, never deferred.
type Debouncer struct {
	mu    sync.Mutex
	state DebounceState
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = config.DefaultDebounce
	}
	return &Debouncer{state: DebounceState{Window: window}}
}

// TryAdmit admits the batch observed at now if at least one window has
// elapsed since the last admission, recording now as the new admission time.
// Check and update share one critical section.
func (d *Debouncer) TryAdmit(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.LastTrigger.IsZero() && now.Sub(d.state.LastTrigger) < d.state.Window {
		return false
	}
	d.state.LastTrigger = now
	return true
}

func (d *Debouncer) Window() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Window
}

// Snapshot returns a copy of the current state.
func (d *Debouncer) Snapshot() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
