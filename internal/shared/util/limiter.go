package util

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter and remembers how many events it refused, so a
// caller can report the suppressed count once it is allowed through again.
type Limiter struct {
	inner      *rate.Limiter
	suppressed atomic.Uint64
}

// NewLimiter creates a new token bucket limiter.
// every: minimum interval between events once the burst is spent.
// b: burst size.
func NewLimiter(every time.Duration, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Every(every), b),
	}
}

// Allow reports whether an event may happen at time now.
func (l *Limiter) Allow(now time.Time) bool {
	if l.inner.AllowN(now, 1) {
		return true
	}
	l.suppressed.Add(1)
	return false
}

// TakeSuppressed returns the number of refused events since the last call
// and resets the counter.
func (l *Limiter) TakeSuppressed() uint64 {
	return l.suppressed.Swap(0)
}
