package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("boom")

// TestBreaker_OpensAfterThreshold verifies that consecutive failures open the
// circuit and subsequent calls are refused with ErrOpen.
func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("Do() error = %v, want errUpstream", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Do() error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("Do() invoked fn while circuit open")
	}
}

// TestBreaker_SuccessResetsFailureCount verifies that an intervening success
// resets the consecutive-failure count.
func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(Config{FailureThreshold: 3, Cooldown: time.Minute})

	_ = b.Do(func() error { return errUpstream })
	_ = b.Do(func() error { return errUpstream })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errUpstream })
	_ = b.Do(func() error { return errUpstream })

	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want closed after interleaved success", b.State())
	}
}

// TestBreaker_HalfOpenRecovery verifies the open → half-open → closed path
// after the cooldown elapses and probes succeed.
func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	now = now.Add(2 * time.Minute)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe Do() error = %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open after first probe", b.State())
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe Do() error = %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want closed after success threshold", b.State())
	}
}

// TestBreaker_HalfOpenFailureReopens verifies that a failed probe reopens the
// circuit immediately.
func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	var transitions []string
	b := New(Config{FailureThreshold: 1, Cooldown: time.Minute, OnTransition: func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}})
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errUpstream })
	now = now.Add(2 * time.Minute)
	_ = b.Do(func() error { return errUpstream })

	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want open after failed probe", b.State())
	}
	want := []string{"closed->open", "open->half_open", "half_open->open"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}
