package health

import (
	"sync"
	"testing"
	"time"
)

// TestTracker_ErrorRate verifies error and total counts within the window.
func TestTracker_ErrorRate(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordError()

	errorCount, total := tr.ErrorRate(time.Minute)
	if errorCount != 1 {
		t.Errorf("errorCount = %d, want 1", errorCount)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
}

// TestTracker_WindowExcludesOldOutcomes verifies that outcomes outside the
// window are not counted.
func TestTracker_WindowExcludesOldOutcomes(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.now = func() time.Time { return now }
	tr.RecordError()

	tr.now = func() time.Time { return now.Add(2 * time.Minute) }
	tr.RecordSuccess()

	errorCount, total := tr.ErrorRate(time.Minute)
	if errorCount != 0 {
		t.Errorf("errorCount = %d, want 0 (error outside window)", errorCount)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if got := tr.RequestCount(5 * time.Minute); got != 2 {
		t.Errorf("RequestCount(5m) = %d, want 2", got)
	}
}

// TestTracker_Reset verifies that Reset clears recorded outcomes.
func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordError()
	tr.Reset()

	if _, total := tr.ErrorRate(time.Minute); total != 0 {
		t.Errorf("total after Reset = %d, want 0", total)
	}
}

// TestTracker_ConcurrentRecording exercises concurrent writers; run with -race.
func TestTracker_ConcurrentRecording(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					tr.RecordSuccess()
				} else {
					tr.RecordError()
				}
			}
		}(i)
	}
	wg.Wait()

	errorCount, total := tr.ErrorRate(time.Minute)
	if total != 400 {
		t.Errorf("total = %d, want 400", total)
	}
	if errorCount != 200 {
		t.Errorf("errorCount = %d, want 200", errorCount)
	}
}
