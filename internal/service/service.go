package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avoronova/pogoda-scrape-service/internal/cache"
	"github.com/avoronova/pogoda-scrape-service/internal/circuitbreaker"
	"github.com/avoronova/pogoda-scrape-service/internal/fetcher"
	"github.com/avoronova/pogoda-scrape-service/internal/models"
	"github.com/avoronova/pogoda-scrape-service/internal/observability"
	"github.com/avoronova/pogoda-scrape-service/internal/parser"
)

// WeatherService orchestrates fetch, parse and cache for each request mode.
// The order is fixed: fresh cache, then live fetch+parse, then stale cache,
// then hard failure. Timeliness is traded for availability when the upstream
// is flaky; a fetch failure never blocks beyond the fetch timeout.
type WeatherService struct {
	fetcher   fetcher.Fetcher
	store     *cache.Store
	baseURL   string
	breaker   *circuitbreaker.Breaker // nil when disabled
	coalescer *coalescer              // nil when disabled
}

// NewWeatherService creates a WeatherService. baseURL is used to recompute the
// source URL for every response, cached or not. breaker may be nil;
// coalescing is enabled by a positive coalesceTimeout.
func NewWeatherService(f fetcher.Fetcher, store *cache.Store, baseURL string, breaker *circuitbreaker.Breaker, coalesceEnabled bool, coalesceTimeout time.Duration) *WeatherService {
	var co *coalescer
	if coalesceEnabled && coalesceTimeout > 0 {
		co = newCoalescer(coalesceTimeout)
	}
	return &WeatherService{
		fetcher:   f,
		store:     store,
		baseURL:   baseURL,
		breaker:   breaker,
		coalescer: co,
	}
}

// loggerFromContext extracts the request-scoped zap.Logger, nil when absent.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// Get returns the weather envelope for (mode, lat, lon). Cached is true
// whenever the payload came from the cache, whether fresh or stale; Stale is
// additionally set on the fallback path. The error is only returned when the
// fetch or parse failed and no cached entry of any age exists.
func (s *WeatherService) Get(ctx context.Context, mode models.Mode, lat, lon float64) (models.Envelope, error) {
	observability.WeatherRequestsTotal.WithLabelValues(string(mode)).Inc()
	logger := loggerFromContext(ctx)
	source := fetcher.BuildURL(s.baseURL, mode, lat, lon)
	key := cache.NewKey(mode, lat, lon)

	if payload, age, ok := s.store.Get(key); ok && s.store.Fresh(age) {
		observability.CacheHitsTotal.WithLabelValues(string(mode)).Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("mode", string(mode)), zap.Duration("age", age))
		}
		return envelope(lat, lon, source, payload, true, false), nil
	}

	payload, err := s.refresh(ctx, key, mode, lat, lon)
	if err != nil {
		if stale, age, ok := s.store.Get(key); ok {
			observability.StaleServesTotal.WithLabelValues(string(mode)).Inc()
			observability.StaleAgeSeconds.Observe(age.Seconds())
			if logger != nil {
				logger.Info("serving stale cache",
					zap.String("mode", string(mode)),
					zap.Duration("age", age),
					zap.Error(err))
			}
			return envelope(lat, lon, source, stale, true, !s.store.Fresh(age)), nil
		}
		return models.Envelope{}, fmt.Errorf("weather %s for (%s, %s): %w",
			mode, formatCoord(lat), formatCoord(lon), err)
	}

	s.store.Put(key, payload)
	if logger != nil {
		logger.Debug("weather refreshed", zap.String("mode", string(mode)))
	}
	return envelope(lat, lon, source, payload, false, false), nil
}

// refresh performs one fetch+parse cycle, coalesced with concurrent requests
// for the same key when coalescing is enabled.
func (s *WeatherService) refresh(ctx context.Context, key cache.Key, mode models.Mode, lat, lon float64) (interface{}, error) {
	if s.coalescer != nil {
		return s.coalescer.GetOrDo(ctx, key, func() (interface{}, error) {
			return s.fetchAndParse(ctx, mode, lat, lon)
		})
	}
	return s.fetchAndParse(ctx, mode, lat, lon)
}

func (s *WeatherService) fetchAndParse(ctx context.Context, mode models.Mode, lat, lon float64) (interface{}, error) {
	var html string
	fetch := func() error {
		var err error
		html, err = s.fetcher.Fetch(ctx, mode, lat, lon)
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Do(fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}

	var payload interface{}
	switch mode {
	case models.ModeMonthly:
		payload, err = parser.ParseMonth(html)
	default:
		payload, err = parser.ParseCurrent(html)
	}
	if err != nil {
		observability.ParseFailuresTotal.WithLabelValues(string(mode)).Inc()
		return nil, err
	}
	return payload, nil
}

func envelope(lat, lon float64, source string, payload interface{}, cached, stale bool) models.Envelope {
	return models.Envelope{
		Lat:    lat,
		Lon:    lon,
		Source: source,
		Cached: cached,
		Stale:  stale,
		Data:   payload,
	}
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
