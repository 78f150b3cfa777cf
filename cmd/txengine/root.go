package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	csvadapter "github.com/iho/txengine/internal/adapter/csv"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/usecase"
)

// globalOptions are shared by every command.
type globalOptions struct {
	envFile   string
	logLevel  string
	logFormat string
}

// exportOptions select where a finished run is sent besides the main output.
type exportOptions struct {
	postgres  bool
	migrate   bool
	events    string
	snapshots bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	export := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "txengine [flags] FILE...",
		Short: "Transaction ledger engine",
		Long: `txengine applies deposits, withdrawals, disputes, resolves and chargebacks
to client accounts and prints the final account table as CSV.

Each FILE is a CSV file with a "type,client,tx,amount" header; "-" reads
standard input. Files are processed in order into a single ledger.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runProcess(cmd, opts, export, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Optional file with environment variables")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: json or console (overrides LOG_FORMAT)")

	addExportFlags(cmd, export)

	cmd.AddCommand(
		newProcessCmd(opts),
		newServeCmd(opts),
		newConsumeCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
		newReconcileCmd(opts),
	)

	return cmd
}

func newProcessCmd(opts *globalOptions) *cobra.Command {
	export := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "process FILE...",
		Short: "Process CSV files and print the account table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, export, args)
		},
	}
	addExportFlags(cmd, export)
	return cmd
}

func addExportFlags(cmd *cobra.Command, export *exportOptions) {
	flags := cmd.Flags()
	flags.BoolVar(&export.postgres, "postgres", false, "Also store the account table in DATABASE_URL")
	flags.BoolVar(&export.migrate, "migrate", false, "Apply database migrations before exporting")
	flags.StringVar(&export.events, "events", "", `Publish run events: "log" or "kafka" (KAFKA_EVENTS_TOPIC)`)
	flags.BoolVar(&export.snapshots, "snapshot-events", false, "Publish one event per account in addition to lock events")
}

// setup loads configuration and builds the logger, applying flag overrides.
func setup(cmd *cobra.Command, opts *globalOptions) (*config.Config, zerolog.Logger, error) {
	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}

	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}

func runProcess(cmd *cobra.Command, opts *globalOptions, export *exportOptions, paths []string) error {
	cfg, log, err := setup(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := csvadapter.NewWriter(cmd.OutOrStdout())
	exporters, cleanup, err := buildExporters(ctx, cfg, log, export)
	if err != nil {
		return err
	}
	defer cleanup()

	sources := make([]usecase.RecordSource, 0, len(paths))
	for _, path := range paths {
		r, closeFn, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer closeFn()
		sources = append(sources, csvadapter.NewReader(r, path))
	}

	processOpts := append([]usecase.ProcessOption{usecase.WithExporter("csv", out)}, exporters...)
	uc := usecase.NewProcessUseCase(newIDGenerator(), log, processOpts...)

	_, err = uc.Run(ctx, usecase.RunInput{Sources: sources})
	return err
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
