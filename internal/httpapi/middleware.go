package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avoronova/pogoda-scrape-service/internal/observability"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// CorrelationIDMiddleware assigns a correlation ID to every request and
// stores a request-scoped logger in the context under the "logger" key.
func CorrelationIDMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), "correlation_id", corrID)
			requestLogger := logger.With(zap.String("correlation_id", corrID))
			ctx = context.WithValue(ctx, "logger", requestLogger)

			w.Header().Set("X-Correlation-ID", corrID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request counts, durations and the in-flight gauge.
func MetricsMiddleware(tracker *InFlightTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := getRoute(r.URL.Path)

			tracker.Increment()
			observability.HTTPRequestsInFlight.Inc()
			defer func() {
				observability.HTTPRequestsInFlight.Dec()
				tracker.Decrement()
			}()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start).Seconds()
			observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(rec.statusCode)).Inc()
			observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
		})
	}
}

// TimeoutMiddleware bounds handler execution time via the request context.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusCodeString buckets status codes into classes ("2xx", "5xx") to keep
// metric cardinality low.
func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// getRoute maps request paths to stable route labels so metric cardinality
// stays bounded.
func getRoute(path string) string {
	switch path {
	case "/api/weather/total":
		return "/api/weather/total"
	case "/api/weather/month":
		return "/api/weather/month"
	case "/health":
		return "/health"
	case "/metrics":
		return "/metrics"
	default:
		return "other"
	}
}
