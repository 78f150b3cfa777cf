package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	csvadapter "github.com/iho/txengine/internal/adapter/csv"
	postgresRepo "github.com/iho/txengine/internal/adapter/repository/postgres"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

func newReconcileCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile RUN_ID FILE...",
		Short: "Replay CSV files and compare the result with a stored run",
		Long: `reconcile processes FILE... like the root command, then compares the
resulting account table with the one exported to DATABASE_URL under RUN_ID.
Differences are printed and make the command fail.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := openPool(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer pool.Close()

			sources := make([]usecase.RecordSource, 0, len(args)-1)
			for _, path := range args[1:] {
				r, closeFn, err := openInput(cmd, path)
				if err != nil {
					return err
				}
				defer closeFn()
				sources = append(sources, csvadapter.NewReader(r, path))
			}

			replay, err := usecase.NewProcessUseCase(newIDGenerator(), log).Run(ctx, usecase.RunInput{Sources: sources})
			if err != nil {
				return err
			}

			repo := postgresRepo.NewSnapshotRepository(pool, postgresRepo.NewRetrier(log))
			report, err := usecase.NewReconciliationUseCase(repo).Reconcile(ctx, args[0], replay.Accounts)
			if err != nil {
				return err
			}

			if err := printReconciliation(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Consistent() {
				return fmt.Errorf("run %s: %d of %d accounts differ", report.RunID, len(report.Discrepancies), report.TotalAccounts)
			}
			return nil
		},
	}
}

func printReconciliation(w io.Writer, report *usecase.ReconciliationReport) error {
	fmt.Fprintf(w, "run %s: %d/%d accounts reconciled\n", report.RunID, report.ReconciledAccounts, report.TotalAccounts)
	if started, err := postgresRepo.RunTime(report.RunID); err == nil {
		fmt.Fprintf(w, "started %s\n", started.Format(time.RFC3339))
	}
	if report.Consistent() {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tRECORDED\tCALCULATED\tDIFFERENCE")
	for _, d := range report.Discrepancies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Client, describe(d.Recorded), describe(d.Calculated), domain.FormatAmount(d.Difference))
	}
	return tw.Flush()
}

func describe(a *domain.AccountSnapshot) string {
	if a == nil {
		return "-"
	}
	s := fmt.Sprintf("%s/%s/%s", domain.FormatAmount(a.Available), domain.FormatAmount(a.Held), domain.FormatAmount(a.Total))
	if a.Locked {
		s += " locked"
	}
	return s
}
