package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/txengine/internal/adapter/http"
	"github.com/iho/txengine/internal/adapter/http/handler"
	"github.com/iho/txengine/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/txengine/internal/adapter/repository/redis"
	"github.com/iho/txengine/internal/infrastructure/auth"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/infrastructure/redis"
	"github.com/iho/txengine/internal/usecase"
)

const limiterIdleTimeout = time.Hour

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		port    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the batch API over HTTP",
		Long: `serve accepts batches of transaction records on POST /api/v1/batches and
answers with the resulting account table. Every batch is processed in its
own ledger.

Redis (REDIS_URL) enables Idempotency-Key replay and GET /api/v1/batches/{id};
Postgres (DATABASE_URL) stores every account table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, log, migrate)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides HTTP_PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations on startup")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	processOpts := []usecase.ProcessOption{usecase.WithMetrics(m)}
	checks := map[string]handler.Pinger{}

	if cfg.DatabaseURL != "" {
		pool, err := openPool(ctx, cfg, log, migrate)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := postgresRepo.NewSnapshotRepository(pool, postgresRepo.NewRetrier(log))
		processOpts = append(processOpts, usecase.WithExporter("postgres", repo))
		checks["postgres"] = pool
	}

	routerCfg := httpAdapter.RouterConfig{
		Metrics:       m,
		Gatherer:      prometheus.DefaultGatherer,
		Logger:        log,
	}

	var cache usecase.ReportCache
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, PingTimeout: 5 * time.Second})
		if err != nil {
			return err
		}
		defer client.Close()
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewReportCache(client)
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(client)
		routerCfg.IdempotencyTTL = cfg.IdempotencyTTL
		checks["redis"] = redis.Pinger{Client: client}
	}

	if cfg.AuthEnabled {
		routerCfg.JWTManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithHits(m.RateLimitHits)
		routerCfg.RateLimiter = limiter
		go cleanupLimiters(ctx, limiter, log)
	}

	processor := usecase.NewProcessUseCase(newIDGenerator(), log, processOpts...)
	routerCfg.BatchHandler = handler.NewBatchHandler(handler.BatchHandlerConfig{
		Processor: processor,
		Cache:     cache,
		CacheTTL:  cfg.IdempotencyTTL,
		MaxBytes:  cfg.MaxBatchBytes,
		Logger:    log,
	})
	routerCfg.HealthHandler = handler.NewHealthHandler(checks)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("dropped idle rate limiters")
			}
		}
	}
}
