package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/avoronova/pogoda-scrape-service/internal/models"
	"github.com/avoronova/pogoda-scrape-service/internal/observability"
)

// ErrUnavailable is returned when the upstream page could not be retrieved:
// DNS failure, timeout, connection reset, or a non-2xx status.
var ErrUnavailable = errors.New("upstream unavailable")

// maxPageSize bounds how much of the upstream page is read. The weather views
// are well under this; anything larger is not a page we can parse anyway.
const maxPageSize = 4 << 20

// Fetcher retrieves the raw upstream page for a coordinate pair.
type Fetcher interface {
	Fetch(ctx context.Context, mode models.Mode, lat, lon float64) (string, error)
}

// PageFetcher fetches weather pages over HTTP with a fixed timeout and a
// rotated client-identity string drawn from a configured pool on every call.
type PageFetcher struct {
	baseURL    string
	identities []string
	timeout    time.Duration
	client     *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPageFetcher creates a PageFetcher. identities must be non-empty; the
// timeout covers the whole request including DNS and body transfer.
func NewPageFetcher(baseURL string, identities []string, timeout time.Duration) (*PageFetcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("fetcher: base URL is required")
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("fetcher: identity pool is empty")
	}
	return &PageFetcher{
		baseURL:    baseURL,
		identities: identities,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Fetch retrieves the page for (mode, lat, lon) and returns its body.
// Failures of any kind wrap ErrUnavailable.
func (f *PageFetcher) Fetch(ctx context.Context, mode models.Mode, lat, lon float64) (string, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, BuildURL(f.baseURL, mode, lat, lon), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.pickIdentity())
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		observability.RecordUpstreamFetch("error", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: request timeout: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.RecordUpstreamFetch(statusLabel(resp.StatusCode), time.Since(start))
		return "", fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		observability.RecordUpstreamFetch("error", time.Since(start))
		return "", fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	observability.RecordUpstreamFetch("success", time.Since(start))
	return string(body), nil
}

// pickIdentity draws one identity from the pool under the fetcher's rand source.
func (f *PageFetcher) pickIdentity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return PickIdentity(f.identities, f.rng)
}

// PickIdentity selects a client-identity string uniformly at random from pool.
// Pure over the supplied rand source so tests can make the draw deterministic.
func PickIdentity(pool []string, rng *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}

// BuildURL constructs the upstream URL for a request. Coordinates are
// formatted exactly as received; cache-key rounding never leaks into URLs.
func BuildURL(base string, mode models.Mode, lat, lon float64) string {
	path := "/ru"
	if mode == models.ModeMonthly {
		path = "/ru/month"
	}
	return base + path + "?lat=" + formatCoord(lat) + "&lon=" + formatCoord(lon)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	default:
		return "error"
	}
}
