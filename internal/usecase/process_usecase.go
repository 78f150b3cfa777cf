package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/ledger"
)

// ProcessUseCase drives record sources through a ledger and exports the
// resulting account table.
type ProcessUseCase struct {
	idGen     IDGenerator
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	exporters []namedExporter
	timeout   time.Duration
	now       func() time.Time
}

type namedExporter struct {
	name string
	SnapshotExporter
}

// ProcessOption configures a ProcessUseCase.
type ProcessOption func(*ProcessUseCase)

// WithExporter adds an exporter. Exporters run in the order they were added;
// name labels its failures in logs and metrics.
func WithExporter(name string, e SnapshotExporter) ProcessOption {
	return func(uc *ProcessUseCase) {
		uc.exporters = append(uc.exporters, namedExporter{name: name, SnapshotExporter: e})
	}
}

// WithMetrics records run and record metrics.
func WithMetrics(m *metrics.Metrics) ProcessOption {
	return func(uc *ProcessUseCase) {
		uc.metrics = m
	}
}

// WithExportTimeout overrides DefaultExportTimeout.
func WithExportTimeout(d time.Duration) ProcessOption {
	return func(uc *ProcessUseCase) {
		uc.timeout = d
	}
}

// NewProcessUseCase creates a new ProcessUseCase.
func NewProcessUseCase(idGen IDGenerator, logger zerolog.Logger, opts ...ProcessOption) *ProcessUseCase {
	uc := &ProcessUseCase{
		idGen:   idGen,
		logger:  logger,
		timeout: DefaultExportTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RunInput represents input for a processing run.
type RunInput struct {
	// Sources are drained one after another into the same ledger.
	Sources []RecordSource
	// Sink, if set, observes every malformed or rejected record.
	Sink ledger.RejectionSink
}

// Run drains every source into a fresh ledger, in order, and hands the final
// snapshot to the configured exporters.
//
// A fatal source error aborts the run before anything is exported. Exporter
// failures do not stop the remaining exporters; the report is returned
// together with the joined export error.
func (uc *ProcessUseCase) Run(ctx context.Context, input RunInput) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:        uc.idGen.Generate(),
		StartedAt: uc.now(),
	}
	log := uc.logger.With().Str("run_id", report.ID).Logger()

	var opts []ledger.Option
	if input.Sink != nil {
		opts = append(opts, ledger.WithRejectionSink(input.Sink))
	}
	l := ledger.New(opts...)

	for i, src := range input.Sources {
		stats, err := uc.Process(ctx, l, src, input.Sink)
		report.Stats = report.Stats.Add(stats)
		if err != nil {
			uc.observeRun("failed", report.StartedAt)
			log.Error().Err(err).Int("source", i).Msg("run aborted")
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
	}

	report.Accounts = l.Snapshot()
	report.FinishedAt = uc.now()

	log.Info().
		Int("accounts", len(report.Accounts)).
		Int("records", report.Stats.Records).
		Int("applied", report.Stats.Applied).
		Int("rejected", report.Stats.Rejected).
		Int("malformed", report.Stats.Malformed).
		Msg("run completed")

	if uc.metrics != nil {
		uc.metrics.AccountsTotal.Set(float64(len(report.Accounts)))
		uc.metrics.LockedAccounts.Set(float64(len(report.LockedAccounts())))
	}

	if err := uc.Export(ctx, report); err != nil {
		uc.observeRun("export_failed", report.StartedAt)
		return report, err
	}

	uc.observeRun("completed", report.StartedAt)
	return report, nil
}

// Process applies every record of src to l in arrival order until the source
// is drained.
//
// Malformed records are counted, reported to sink with a nil transaction and
// skipped. Rule violations are reported by the ledger to its own sink. Any
// other source error, or cancellation of ctx, stops processing and is
// returned along with the stats gathered so far.
func (uc *ProcessUseCase) Process(ctx context.Context, l *ledger.Ledger, src RecordSource, sink ledger.RejectionSink) (domain.RunStats, error) {
	var stats domain.RunStats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		tx, err := src.Next(ctx)
		if err == nil && tx == nil {
			err = fmt.Errorf("%w: empty record", domain.ErrMalformedRecord)
		}
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if errors.Is(err, domain.ErrMalformedRecord) {
			stats.Malformed++
			uc.observeMalformed(err)
			if sink != nil {
				sink.Reject(nil, err)
			}
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read record: %w", err)
		}

		stats.Records++
		if err := l.Apply(tx); err != nil {
			stats.Rejected++
			uc.observeRejected(tx, err)
			continue
		}
		stats.Applied++
		if uc.metrics != nil {
			uc.metrics.RecordsApplied.WithLabelValues(string(tx.Kind())).Inc()
		}
	}
}

// Export hands report to every configured exporter.
func (uc *ProcessUseCase) Export(ctx context.Context, report *domain.RunReport) error {
	if len(uc.exporters) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var errs []error
	for _, e := range uc.exporters {
		if err := e.Export(ctx, report); err != nil {
			uc.logger.Error().Err(err).
				Str("run_id", report.ID).
				Str("exporter", e.name).
				Msg("export failed")
			if uc.metrics != nil {
				uc.metrics.ExportErrors.WithLabelValues(e.name).Inc()
			}
			errs = append(errs, fmt.Errorf("export %s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

func (uc *ProcessUseCase) observeMalformed(err error) {
	uc.logger.Warn().Err(err).Msg("skipping malformed record")
	if uc.metrics != nil {
		uc.metrics.RecordsMalformed.Inc()
	}
}

func (uc *ProcessUseCase) observeRejected(tx domain.Transaction, err error) {
	reason := domain.Reason(err)
	uc.logger.Debug().
		Str("kind", string(tx.Kind())).
		Uint16("client", uint16(tx.ClientID())).
		Uint32("tx", uint32(tx.TxID())).
		Str("reason", reason).
		Msg("transaction rejected")
	if uc.metrics != nil {
		uc.metrics.RecordsRejected.WithLabelValues(string(tx.Kind()), reason).Inc()
	}
}

func (uc *ProcessUseCase) observeRun(status string, started time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.RunsTotal.WithLabelValues(status).Inc()
	uc.metrics.RunDuration.Observe(uc.now().Sub(started).Seconds())
}
