package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avoronova/pogoda-scrape-service/internal/cache"
	"github.com/avoronova/pogoda-scrape-service/internal/circuitbreaker"
	"github.com/avoronova/pogoda-scrape-service/internal/config"
	"github.com/avoronova/pogoda-scrape-service/internal/fetcher"
	"github.com/avoronova/pogoda-scrape-service/internal/health"
	"github.com/avoronova/pogoda-scrape-service/internal/httpapi"
	"github.com/avoronova/pogoda-scrape-service/internal/observability"
	"github.com/avoronova/pogoda-scrape-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	pageFetcher, err := fetcher.NewPageFetcher(cfg.UpstreamBaseURL, cfg.IdentityPool, cfg.FetchTimeout)
	if err != nil {
		logger.Fatal("fetcher", zap.Error(err))
	}

	var breaker *circuitbreaker.Breaker
	if cfg.BreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Cooldown:         cfg.BreakerCooldown,
			OnTransition: func(from, to circuitbreaker.State) {
				observability.CircuitBreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
				logger.Info("circuit breaker transition",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
			zap.Duration("cooldown", cfg.BreakerCooldown))
	}

	store := cache.NewStore(cfg.CacheTTL)
	weatherService := service.NewWeatherService(pageFetcher, store, cfg.UpstreamBaseURL, breaker, cfg.CoalesceEnabled, cfg.CoalesceTimeout)

	tracker := health.NewTracker()
	handler := httpapi.NewHandler(weatherService, tracker, &httpapi.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		StartTime:        time.Now(),
	}, logger)
	inFlight := httpapi.NewInFlightTracker()

	router := mux.NewRouter()
	router.Use(httpapi.CorrelationIDMiddleware(logger))
	router.Use(httpapi.MetricsMiddleware(inFlight))
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	weatherRouter := router.PathPrefix("/api/weather").Subrouter()
	weatherRouter.Use(httpapi.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/total", handler.GetCurrent).Methods("GET")
	weatherRouter.HandleFunc("/month", handler.GetMonthly).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", ":"+cfg.ServerPort),
			zap.String("upstream", cfg.UpstreamBaseURL),
			zap.Duration("cache_ttl", cfg.CacheTTL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	handler.SetDraining(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
