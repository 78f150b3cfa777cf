package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/adapter/http/handler"
	"github.com/iho/txengine/internal/adapter/http/middleware"
	"github.com/iho/txengine/internal/infrastructure/auth"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	BatchHandler  *handler.BatchHandler
	HealthHandler *handler.HealthHandler

	// Optional.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	JWTManager       *auth.JWTManager
	Metrics          *metrics.Metrics
	// Gatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		}

		r.Route("/batches", func(r chi.Router) {
			r.With(scope(cfg, auth.ScopeBatchesWrite), idempotency(cfg)).Post("/", cfg.BatchHandler.Create)
			r.With(scope(cfg, auth.ScopeBatchesRead)).Get("/{id}", cfg.BatchHandler.Get)
		})
	})

	return r
}

func scope(cfg RouterConfig, name string) func(http.Handler) http.Handler {
	if cfg.JWTManager == nil {
		return passthrough
	}
	return middleware.RequireScope(name)
}

func idempotency(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.IdempotencyStore == nil {
		return passthrough
	}
	var replays prometheus.Counter
	if cfg.Metrics != nil {
		replays = cfg.Metrics.IdempotentReplays
	}
	return middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, replays).Wrap
}

func passthrough(next http.Handler) http.Handler {
	return next
}
