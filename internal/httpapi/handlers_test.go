package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avoronova/pogoda-scrape-service/internal/health"
	"github.com/avoronova/pogoda-scrape-service/internal/models"
)

// stubWeather returns a fixed envelope or error for every call.
type stubWeather struct {
	env   models.Envelope
	err   error
	calls int
	mode  models.Mode
}

func (s *stubWeather) Get(_ context.Context, mode models.Mode, lat, lon float64) (models.Envelope, error) {
	s.calls++
	s.mode = mode
	if s.err != nil {
		return models.Envelope{}, s.err
	}
	env := s.env
	env.Lat = lat
	env.Lon = lon
	return env, nil
}

func newTestHandler(weather WeatherGetter) *Handler {
	return NewHandler(weather, health.NewTracker(), &HealthConfig{
		DegradedWindow:   time.Minute,
		DegradedErrorPct: 50,
		StartTime:        time.Now(),
	}, zap.NewNop())
}

// TestGetCurrentSuccess verifies a valid request reaches the service with the
// parsed coordinates and the envelope is returned as JSON.
func TestGetCurrentSuccess(t *testing.T) {
	temp := "+5°"
	weather := &stubWeather{env: models.Envelope{
		Source: "https://yandex.ru/pogoda/ru?lat=55.7558&lon=37.6173",
		Data:   models.CurrentWeather{Temperature: temp, Condition: models.ConditionCloudy, ConditionText: "Облачно"},
	}}
	h := newTestHandler(weather)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/total?lat=55.7558&lon=37.6173", nil)
	rec := httptest.NewRecorder()
	h.GetCurrent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if weather.mode != models.ModeCurrent {
		t.Errorf("expected current mode, got %q", weather.mode)
	}

	var env models.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if env.Lat != 55.7558 || env.Lon != 37.6173 {
		t.Errorf("unexpected coordinates in response: %v, %v", env.Lat, env.Lon)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json content type, got %q", rec.Header().Get("Content-Type"))
	}
}

// TestGetMonthlyUsesMonthMode verifies the month route requests monthly data.
func TestGetMonthlyUsesMonthMode(t *testing.T) {
	weather := &stubWeather{env: models.Envelope{Data: []models.MonthlyDay{}}}
	h := newTestHandler(weather)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/month?lat=1&lon=2", nil)
	rec := httptest.NewRecorder()
	h.GetMonthly(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if weather.mode != models.ModeMonthly {
		t.Errorf("expected monthly mode, got %q", weather.mode)
	}
}

// TestInvalidCoordinates verifies bad input yields 422 with the standard error
// envelope and never reaches the service.
func TestInvalidCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing both", ""},
		{"missing lon", "lat=55.75"},
		{"non-numeric lat", "lat=abc&lon=37.61"},
		{"lat out of range", "lat=91&lon=37.61"},
		{"lon out of range", "lat=55.75&lon=181"},
		{"nan lat", "lat=NaN&lon=37.61"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weather := &stubWeather{}
			h := newTestHandler(weather)

			req := httptest.NewRequest(http.MethodGet, "/api/weather/total?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.GetCurrent(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
			if weather.calls != 0 {
				t.Errorf("service called %d times for invalid input", weather.calls)
			}

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON error body: %v", err)
			}
			if body.Error.Code != "INVALID_COORDINATES" {
				t.Errorf("expected INVALID_COORDINATES, got %q", body.Error.Code)
			}
			if body.Error.Message == "" {
				t.Error("expected non-empty error message")
			}
		})
	}
}

// TestUpstreamFailureReturns502 verifies service errors map to 502 with the
// UPSTREAM_UNAVAILABLE code.
func TestUpstreamFailureReturns502(t *testing.T) {
	weather := &stubWeather{err: errors.New("fetch weather page: connection refused")}
	h := newTestHandler(weather)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/total?lat=55.75&lon=37.61", nil)
	rec := httptest.NewRecorder()
	h.GetCurrent(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON error body: %v", err)
	}
	if body.Error.Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("expected UPSTREAM_UNAVAILABLE, got %q", body.Error.Code)
	}
}

// TestErrorEnvelopeIncludesRequestID verifies the correlation ID from the
// request context appears in error responses.
func TestErrorEnvelopeIncludesRequestID(t *testing.T) {
	h := newTestHandler(&stubWeather{})

	req := httptest.NewRequest(http.MethodGet, "/api/weather/total", nil)
	ctx := context.WithValue(req.Context(), "correlation_id", "test-corr-id")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	h.GetCurrent(rec, req)

	var body struct {
		Error struct {
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON error body: %v", err)
	}
	if body.Error.RequestID != "test-corr-id" {
		t.Errorf("expected correlation ID in error envelope, got %q", body.Error.RequestID)
	}
}

// TestHealthHealthy verifies the default health response.
func TestHealthHealthy(t *testing.T) {
	h := newTestHandler(&stubWeather{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON health body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

// TestHealthDegraded verifies the error-rate breach flips the status.
func TestHealthDegraded(t *testing.T) {
	h := newTestHandler(&stubWeather{})
	for i := 0; i < 10; i++ {
		h.tracker.RecordError()
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON health body: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", body["status"])
	}
}

// TestHealthShuttingDown verifies draining beats every other status.
func TestHealthShuttingDown(t *testing.T) {
	h := newTestHandler(&stubWeather{})
	h.SetDraining(true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON health body: %v", err)
	}
	if body["status"] != "shutting-down" {
		t.Errorf("expected shutting-down, got %v", body["status"])
	}
}
