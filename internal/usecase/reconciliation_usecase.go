package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

// ReconciliationUseCase compares an exported account table with a freshly
// computed one.
type ReconciliationUseCase struct {
	snapshots SnapshotRepository
	now       func() time.Time
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(snapshots SnapshotRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ReconciliationResult is the comparison of one client's account. Recorded
// is nil when the stored run lacks the client, Calculated when the replay
// does.
type ReconciliationResult struct {
	Client       domain.ClientID
	Recorded     *domain.AccountSnapshot
	Calculated   *domain.AccountSnapshot
	Difference   decimal.Decimal
	IsReconciled bool
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	RunID              string
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

// Consistent reports whether every account matched.
func (r *ReconciliationReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}

// Reconcile loads the account table stored for runID and compares it,
// client by client, with calculated. Clients are reported in calculated
// order followed by clients only present in the stored run.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, runID string, calculated []domain.AccountSnapshot) (*ReconciliationReport, error) {
	recorded, err := uc.snapshots.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(recorded) == 0 && len(calculated) > 0 {
		return nil, fmt.Errorf("load run %s: %w", runID, ErrReportNotFound)
	}

	stored := make(map[domain.ClientID]domain.AccountSnapshot, len(recorded))
	for _, a := range recorded {
		stored[a.Client] = a
	}

	report := &ReconciliationReport{
		RunID:         runID,
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     uc.now(),
	}

	add := func(result *ReconciliationResult) {
		report.TotalAccounts++
		if result.IsReconciled {
			report.ReconciledAccounts++
			return
		}
		report.Discrepancies = append(report.Discrepancies, result)
	}

	seen := make(map[domain.ClientID]bool, len(calculated))
	for i := range calculated {
		calc := calculated[i]
		seen[calc.Client] = true

		rec, ok := stored[calc.Client]
		if !ok {
			add(&ReconciliationResult{
				Client:     calc.Client,
				Calculated: &calc,
				Difference: calc.Total.Neg(),
			})
			continue
		}
		add(compare(rec, calc))
	}

	for i := range recorded {
		rec := recorded[i]
		if seen[rec.Client] {
			continue
		}
		add(&ReconciliationResult{
			Client:     rec.Client,
			Recorded:   &rec,
			Difference: rec.Total,
		})
	}

	return report, nil
}

func compare(rec, calc domain.AccountSnapshot) *ReconciliationResult {
	return &ReconciliationResult{
		Client:     calc.Client,
		Recorded:   &rec,
		Calculated: &calc,
		Difference: rec.Total.Sub(calc.Total),
		IsReconciled: rec.Available.Equal(calc.Available) &&
			rec.Held.Equal(calc.Held) &&
			rec.Total.Equal(calc.Total) &&
			rec.Locked == calc.Locked,
	}
}
