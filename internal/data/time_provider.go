package data

import (
	"sync"
	"time"
)

// RealTimeProvider implements core.TimeProvider using real system time.
type RealTimeProvider struct{}

// Now returns the current system time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Sleep blocks the calling goroutine for d.
func (r *RealTimeProvider) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// FixedTimeProvider implements core.TimeProvider with a manually advanced clock for testing.
// Sleep returns immediately and moves the clock forward.
type FixedTimeProvider struct {
	mu        sync.Mutex
	fixedTime time.Time
	slept     []time.Duration
}

// NewFixedTimeProvider creates a new FixedTimeProvider with the given time.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

// Now returns the fixed time.
func (f *FixedTimeProvider) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixedTime
}

// Sleep records d and advances the clock by it.
func (f *FixedTimeProvider) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	f.fixedTime = f.fixedTime.Add(d)
}

// Slept returns every duration passed to Sleep so far.
func (f *FixedTimeProvider) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.slept...)
}

// SetTime updates the fixed time.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixedTime = t
}
