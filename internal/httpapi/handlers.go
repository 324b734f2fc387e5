package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/avoronova/pogoda-scrape-service/internal/health"
	"github.com/avoronova/pogoda-scrape-service/internal/models"
	"github.com/avoronova/pogoda-scrape-service/internal/validation"
)

// WeatherGetter is implemented by the service layer.
type WeatherGetter interface {
	Get(ctx context.Context, mode models.Mode, lat, lon float64) (models.Envelope, error)
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	StartTime        time.Time
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	weather      WeatherGetter
	tracker      *health.Tracker
	healthConfig *HealthConfig
	logger       *zap.Logger

	draining atomic.Bool

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(weather WeatherGetter, tracker *health.Tracker, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		weather:      weather,
		tracker:      tracker,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// SetDraining marks the process as shutting down; /health reports 503 while set.
func (h *Handler) SetDraining(v bool) {
	h.draining.Store(v)
}

// GetCurrent handles GET /api/weather/total.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	h.serveWeather(w, r, models.ModeCurrent)
}

// GetMonthly handles GET /api/weather/month.
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	h.serveWeather(w, r, models.ModeMonthly)
}

func (h *Handler) serveWeather(w http.ResponseWriter, r *http.Request, mode models.Mode) {
	query := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(query.Get("lat"), query.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "INVALID_COORDINATES", err.Error())
		return
	}

	env, err := h.weather.Get(r.Context(), mode, lat, lon)
	if err != nil {
		h.tracker.RecordError()
		writeUpstreamError(w, r, err)
		return
	}
	h.tracker.RecordSuccess()
	writeJSON(w, http.StatusOK, env)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"upstream": "healthy"}
	if result.status == "degraded" {
		checks["upstream"] = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "pogoda-scrape-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptime"] = time.Since(h.healthConfig.StartTime).Round(time.Second).String()
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus decides the health status in priority order:
// shutting-down > degraded (upstream error rate breach) > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.draining.Load() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errorCount, total := h.tracker.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errorCount) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with code, message and the
// request's correlation ID when present.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeUpstreamError writes a 502 for a request the core could not satisfy
// from upstream or cache. Fetch and parse failures are not distinguished here.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("upstream error", zap.Error(err))
	}
}
