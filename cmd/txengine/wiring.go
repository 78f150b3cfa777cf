package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	kafkaadapter "github.com/iho/txengine/internal/adapter/kafka"
	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/eventpublisher"
	"github.com/iho/txengine/internal/infrastructure/postgres"
	"github.com/iho/txengine/internal/usecase"
)

const (
	eventsLog   = "log"
	eventsKafka = "kafka"
)

func newIDGenerator() usecase.IDGenerator {
	return postgresRepo.NewRunIDGenerator()
}

// openPool connects to DATABASE_URL, optionally migrating the schema first.
func openPool(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	if migrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")
	return pool, nil
}

// buildExporters returns the exporter options selected by export. cleanup
// releases every connection opened for them and is never nil.
func buildExporters(ctx context.Context, cfg *config.Config, log zerolog.Logger, export *exportOptions) ([]usecase.ProcessOption, func(), error) {
	var (
		opts    []usecase.ProcessOption
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if export.postgres {
		pool, err := openPool(ctx, cfg, log, export.migrate)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)

		repo := postgresRepo.NewSnapshotRepository(pool, postgresRepo.NewRetrier(log))
		opts = append(opts, usecase.WithExporter("postgres", repo))
	}

	publisher, closePublisher, err := buildPublisher(cfg, log, export.events)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if publisher != nil {
		closers = append(closers, closePublisher)
		opts = append(opts, usecase.WithExporter("events", eventpublisher.NewEventPublisher(eventpublisher.Config{
			Publisher: publisher,
			IDGen:     newIDGenerator(),
			Logger:    log,
			Snapshots: export.snapshots,
		})))
	}

	return opts, cleanup, nil
}

func buildPublisher(cfg *config.Config, log zerolog.Logger, kind string) (eventpublisher.Publisher, func(), error) {
	switch kind {
	case "":
		return nil, func() {}, nil
	case eventsLog:
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	case eventsKafka:
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaEventsTopic == "" {
			return nil, nil, errors.New("kafka events need KAFKA_BROKERS and KAFKA_EVENTS_TOPIC")
		}
		p := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		return p, func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close event publisher")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown events target %q", kind)
	}
}
