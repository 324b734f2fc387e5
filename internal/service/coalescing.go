package service

import (
	"context"
	"sync"
	"time"

	"github.com/avoronova/pogoda-scrape-service/internal/cache"
	"github.com/avoronova/pogoda-scrape-service/internal/observability"
)

// inFlight tracks one upstream fetch that concurrent callers share. payload
// and err are written before done closes, so waiters read them safely.
type inFlight struct {
	done    chan struct{}
	payload interface{}
	err     error
}

// coalescer deduplicates concurrent upstream fetches for the same cache key.
// The first caller for a key runs the fetch; everyone else waits on its
// result with a bounded timeout.
type coalescer struct {
	mu       sync.Mutex
	requests map[cache.Key]*inFlight
	timeout  time.Duration
}

func newCoalescer(timeout time.Duration) *coalescer {
	return &coalescer{
		requests: make(map[cache.Key]*inFlight),
		timeout:  timeout,
	}
}

// GetOrDo returns the result of an already in-flight fetch for key, or runs
// fn as the new in-flight fetch. The initiating caller runs fn on its own
// goroutine (fn carries its own timeout); joiners wait at most the coalescer
// timeout or until ctx is done.
func (c *coalescer) GetOrDo(ctx context.Context, key cache.Key, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if req, ok := c.requests[key]; ok {
		c.mu.Unlock()
		observability.CoalescedFetchesTotal.Inc()

		waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		select {
		case <-req.done:
			return req.payload, req.err
		case <-waitCtx.Done():
			return nil, waitCtx.Err()
		}
	}

	req := &inFlight{done: make(chan struct{})}
	c.requests[key] = req
	c.mu.Unlock()

	req.payload, req.err = fn()

	c.mu.Lock()
	delete(c.requests, key)
	c.mu.Unlock()
	close(req.done)

	return req.payload, req.err
}
