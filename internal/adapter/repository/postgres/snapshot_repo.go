package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/postgres/generated"
)

type snapshotDB interface {
	generated.DBTX
	pgxPool
}

// SnapshotRepository implements usecase.SnapshotRepository.
type SnapshotRepository struct {
	queries   *generated.Queries
	txManager *TxManager
	retrier   *Retrier
	now       func() time.Time
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool, retrier *Retrier) *SnapshotRepository {
	return newSnapshotRepository(pool, retrier)
}

func newSnapshotRepository(db snapshotDB, retrier *Retrier) *SnapshotRepository {
	return &SnapshotRepository{
		queries:   generated.New(db),
		txManager: newTxManagerWithPool(db),
		retrier:   retrier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export writes the account table of report in a single transaction. Rows
// already stored for the run are replaced, so retrying an export is safe.
func (r *SnapshotRepository) Export(ctx context.Context, report *domain.RunReport) error {
	exportedAt := timeToPgTimestamptz(r.now())

	rows := make([]generated.InsertSnapshotsParams, len(report.Accounts))
	for i, a := range report.Accounts {
		rows[i] = generated.InsertSnapshotsParams{
			RunID:      report.ID,
			Position:   int32(i),
			ClientID:   int32(a.Client),
			Available:  decimalToNumeric(a.Available),
			Held:       decimalToNumeric(a.Held),
			Total:      decimalToNumeric(a.Total),
			Locked:     a.Locked,
			ExportedAt: exportedAt,
		}
	}

	return r.retrier.Retry(ctx, func() error {
		return r.insert(ctx, report.ID, rows)
	})
}

func (r *SnapshotRepository) insert(ctx context.Context, runID string, rows []generated.InsertSnapshotsParams) error {
	return r.txManager.InTx(ctx, func(tx pgx.Tx) error {
		queries := r.queries.WithTx(tx)

		if err := queries.DeleteSnapshotsByRun(ctx, runID); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		n, err := queries.InsertSnapshots(ctx, rows)
		if err != nil {
			return err
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("copied %d of %d snapshot rows", n, len(rows))
		}
		return nil
	})
}

// ListByRun returns the account table stored for runID in export order.
func (r *SnapshotRepository) ListByRun(ctx context.Context, runID string) ([]domain.AccountSnapshot, error) {
	rows, err := r.queries.ListSnapshotsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AccountSnapshot, len(rows))
	for i, row := range rows {
		out[i] = rowToSnapshot(row)
	}
	return out, nil
}

func rowToSnapshot(row generated.AccountSnapshot) domain.AccountSnapshot {
	return domain.AccountSnapshot{
		Client:    domain.ClientID(row.ClientID),
		Available: numericToDecimal(row.Available),
		Held:      numericToDecimal(row.Held),
		Total:     numericToDecimal(row.Total),
		Locked:    row.Locked,
	}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

