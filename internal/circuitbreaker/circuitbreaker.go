// Package circuitbreaker guards the upstream fetch path: after repeated
// failures the circuit opens and fetches are refused without touching the
// network, which pushes the caller straight onto its stale-cache fallback.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit refuses a call. Callers treat it the
// same as any other upstream failure.
var ErrOpen = errors.New("circuit open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker opens after failureThreshold consecutive failures, refuses calls
// for cooldown, then lets probe calls through half-open until successThreshold
// consecutive successes close it again.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	openedAt    time.Time
	cfg         Config
	now         func() time.Time // injectable for tests
}

// Config holds breaker parameters. Zero values get defaults.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
	OnTransition     func(from, to State) // optional, for metrics
}

// New creates a Breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn when the circuit allows it, recording the outcome. When open and
// still cooling down it returns ErrOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return ErrOpen
	}
	b.transition(StateHalfOpen)
	b.successes = 0
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
			b.openedAt = b.now()
			b.failures = 0
		}
		return
	}

	b.failures = 0
	b.successes++
	if b.state == StateHalfOpen && b.successes >= b.cfg.SuccessThreshold {
		b.transition(StateClosed)
		b.successes = 0
	}
}

// transition moves to the new state and fires the callback. Must be called
// with the mutex held; the callback must not call back into the breaker.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnTransition != nil {
		b.cfg.OnTransition(from, to)
	}
}
