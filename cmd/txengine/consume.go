package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	csvadapter "github.com/iho/txengine/internal/adapter/csv"
	kafkaadapter "github.com/iho/txengine/internal/adapter/kafka"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/ledger"
	"github.com/iho/txengine/internal/usecase"
)

type consumeOptions struct {
	topic       string
	groupID     string
	idle        time.Duration
	max         int
	metricsAddr string
	export      exportOptions
}

func newConsumeCmd(opts *globalOptions) *cobra.Command {
	co := &consumeOptions{}

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Process records from a Kafka topic",
		Long: `consume reads one transaction record per message from KAFKA_RECORDS_TOPIC
until no message arrives within the idle timeout, then prints the account
table as CSV and runs the selected exporters.

Messages carry either a JSON object {"type","client","tx","amount"} or a
single CSV line in type,client,tx,amount order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			co.apply(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runConsume(ctx, cmd, cfg, log, co)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&co.topic, "topic", "", "Records topic (overrides KAFKA_RECORDS_TOPIC)")
	flags.StringVar(&co.groupID, "group", "", "Consumer group (overrides KAFKA_GROUP_ID)")
	flags.DurationVar(&co.idle, "idle-timeout", 0, "Stop after this long without messages (overrides KAFKA_IDLE_TIMEOUT)")
	flags.IntVar(&co.max, "max-messages", 0, "Stop after this many messages; 0 means no limit")
	flags.StringVar(&co.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while consuming")
	addExportFlags(cmd, &co.export)

	return cmd
}

func (co *consumeOptions) apply(cfg *config.Config) {
	if co.topic != "" {
		cfg.KafkaRecordsTopic = co.topic
	}
	if co.groupID != "" {
		cfg.KafkaGroupID = co.groupID
	}
	if co.idle > 0 {
		cfg.KafkaIdleTimeout = co.idle
	}
}

func runConsume(ctx context.Context, cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, co *consumeOptions) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is not set")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if co.metricsAddr != "" {
		srv := &http.Server{
			Addr:              co.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	exporters, cleanup, err := buildExporters(ctx, cfg, log, &co.export)
	if err != nil {
		return err
	}
	defer cleanup()

	source := kafkaadapter.NewSource(kafkaadapter.SourceConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaRecordsTopic,
		GroupID:     cfg.KafkaGroupID,
		IdleTimeout: cfg.KafkaIdleTimeout,
		MaxMessages: co.max,
		Logger:      log,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := source.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka source")
		}
	}()

	processOpts := append([]usecase.ProcessOption{
		usecase.WithMetrics(m),
		usecase.WithExporter("csv", csvadapter.NewWriter(cmd.OutOrStdout())),
	}, exporters...)
	uc := usecase.NewProcessUseCase(newIDGenerator(), log, processOpts...)

	log.Info().
		Strs("brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaRecordsTopic).
		Str("group", cfg.KafkaGroupID).
		Msg("consuming records")

	report, err := uc.Run(ctx, usecase.RunInput{
		Sources: []usecase.RecordSource{source},
		Sink:    rejectionLogger(log),
	})
	if report != nil {
		log.Info().Str("run_id", report.ID).Int("accounts", len(report.Accounts)).Msg("consume finished")
	}
	return err
}

// rejectionLogger reports each rejected record at info level.
func rejectionLogger(log zerolog.Logger) ledger.RejectionSink {
	return ledger.RejectionSinkFunc(func(tx domain.Transaction, err error) {
		event := log.Info().Err(err).Str("reason", domain.Reason(err))
		if tx != nil {
			event = event.
				Str("kind", string(tx.Kind())).
				Uint16("client", uint16(tx.ClientID())).
				Uint32("tx", uint32(tx.TxID()))
		}
		event.Msg("record rejected")
	})
}
