package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

var snapshotColumns = []string{"run_id", "position", "client_id", "available", "held", "total", "locked", "exported_at"}

func newTestSnapshotRepository(t *testing.T) (*SnapshotRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	pool := newMockPool(t)
	retrier := NewRetrier(zerolog.Nop())
	retrier.initialInterval = time.Millisecond
	retrier.maxInterval = time.Millisecond

	repo := newSnapshotRepository(pool, retrier)
	repo.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return repo, pool
}

func snapshotReport() *domain.RunReport {
	return &domain.RunReport{
		ID: "01HRUN",
		Accounts: []domain.AccountSnapshot{
			{Client: 2, Available: decimal.RequireFromString("2"), Total: decimal.RequireFromString("2")},
			{Client: 1, Available: decimal.RequireFromString("1.5"), Held: decimal.RequireFromString("0.25"), Total: decimal.RequireFromString("1.75"), Locked: true},
		},
	}
}

func TestSnapshotRepositoryExport(t *testing.T) {
	repo, pool := newTestSnapshotRepository(t)

	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM account_snapshots").
		WithArgs("01HRUN").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"account_snapshots"}, snapshotColumns).
		WillReturnResult(2)
	pool.ExpectCommit()

	if err := repo.Export(context.Background(), snapshotReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

func TestSnapshotRepositoryExportShortCopy(t *testing.T) {
	repo, pool := newTestSnapshotRepository(t)

	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM account_snapshots").
		WithArgs("01HRUN").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"account_snapshots"}, snapshotColumns).
		WillReturnResult(1)
	pool.ExpectRollback()

	if err := repo.Export(context.Background(), snapshotReport()); err == nil {
		t.Fatalf("expected error for short copy")
	}
}

func TestSnapshotRepositoryExportRetriesSerializationFailure(t *testing.T) {
	repo, pool := newTestSnapshotRepository(t)

	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM account_snapshots").
		WithArgs("01HRUN").
		WillReturnError(&pgconn.PgError{Code: pgErrSerializationFailure})
	pool.ExpectRollback()

	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM account_snapshots").
		WithArgs("01HRUN").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"account_snapshots"}, snapshotColumns).
		WillReturnResult(2)
	pool.ExpectCommit()

	if err := repo.Export(context.Background(), snapshotReport()); err != nil {
		t.Fatalf("expected export to succeed after retry, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestSnapshotRepositoryExportBeginError(t *testing.T) {
	repo, pool := newTestSnapshotRepository(t)
	beginErr := errors.New("connection refused")
	pool.ExpectBegin().WillReturnError(beginErr)

	if err := repo.Export(context.Background(), snapshotReport()); !errors.Is(err, beginErr) {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestSnapshotRepositoryListByRun(t *testing.T) {
	repo, pool := newTestSnapshotRepository(t)
	exportedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Numeric columns arrive in text form, as pgx scans them.
	rows := pool.NewRows(snapshotColumns).
		AddRow("01HRUN", int32(0), int32(2), "2.0000", "0.0000", "2.0000", false, exportedAt).
		AddRow("01HRUN", int32(1), int32(1), "1.5000", "0.2500", "1.7500", true, exportedAt)

	pool.ExpectQuery("SELECT (.+) FROM account_snapshots").
		WithArgs("01HRUN").
		WillReturnRows(rows)

	got, err := repo.ListByRun(context.Background(), "01HRUN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Client != 2 || !got[0].Total.Equal(decimal.RequireFromString("2")) {
		t.Errorf("unexpected first snapshot %+v", got[0])
	}
	if got[1].Client != 1 || !got[1].Locked || !got[1].Held.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("unexpected second snapshot %+v", got[1])
	}

	assertExpectations(t, pool)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1.5", "-2.0001", "123456789.1234"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
	if !numericToDecimal(decimalToNumeric(decimal.Zero)).IsZero() {
		t.Errorf("expected zero")
	}
}
