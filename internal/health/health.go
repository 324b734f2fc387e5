// Package health tracks recent request outcomes so the health endpoint can
// report a degraded upstream. One Tracker is constructed at startup and shared
// by the weather handlers; tests construct their own.
package health

import (
	"sync"
	"time"
)

// retention bounds how far back outcomes are kept. Queries never look further
// back than the configured degraded window, which is well under this.
const retention = 30 * time.Minute

// Tracker maintains sliding windows of success and error timestamps for the
// weather endpoints. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	successes []time.Time
	errors    []time.Time
	now       func() time.Time // injectable for tests
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// RecordSuccess records a served weather request.
func (t *Tracker) RecordSuccess() {
	t.record(&t.successes)
}

// RecordError records a weather request that failed outright (no fresh fetch,
// no cache of any age).
func (t *Tracker) RecordError() {
	t.record(&t.errors)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// ErrorRate returns the error and total outcome counts within the window
// ending now.
func (t *Tracker) ErrorRate(window time.Duration) (errorCount, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	errorCount = countSince(t.errors, cutoff)
	return errorCount, errorCount + countSince(t.successes, cutoff)
}

// RequestCount returns the number of outcomes of either kind within the
// window ending now.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return countSince(t.successes, cutoff) + countSince(t.errors, cutoff)
}

// Reset clears all recorded outcomes. For tests only.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes = nil
	t.errors = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps past retention. Must be called with the mutex
// held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successes)
	prune(&t.errors)
}
