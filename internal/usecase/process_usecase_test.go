package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/ledger"
	"github.com/iho/txengine/internal/usecase"
	"github.com/iho/txengine/internal/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func malformed(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedRecord, msg)
}

func TestProcessUseCase_Process(t *testing.T) {
	src := mocks.NewRecordSource(
		mocks.Record{Tx: domain.Deposit{ID: 1, Client: 1, Amount: dec("1.0")}},
		mocks.Record{Tx: domain.Deposit{ID: 2, Client: 2, Amount: dec("2.0")}},
		mocks.Record{Err: malformed("bad row")},
		mocks.Record{Tx: domain.Withdrawal{ID: 3, Client: 1, Amount: dec("1.5")}},
		mocks.Record{Tx: domain.Deposit{ID: 1, Client: 1, Amount: dec("5.0")}},
		mocks.Record{Tx: domain.Withdrawal{ID: 4, Client: 2, Amount: dec("1.0")}},
	)

	rec := ledger.NewRecorder()
	l := ledger.New(ledger.WithRejectionSink(rec))
	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop())

	stats, err := uc.Process(context.Background(), l, src, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.RunStats{Records: 5, Applied: 3, Rejected: 2, Malformed: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	if rec.Len() != 3 {
		t.Fatalf("expected 3 rejections, got %d", rec.Len())
	}
	if rec.Rejections()[0].Transaction != nil || !errors.Is(rec.Rejections()[0].Err, domain.ErrMalformedRecord) {
		t.Errorf("expected first rejection to be the malformed row, got %+v", rec.Rejections()[0])
	}

	acc, ok := l.Account(2)
	if !ok || !acc.Available.Equal(dec("1")) {
		t.Errorf("expected client 2 available 1, got %+v", acc)
	}
}

func TestProcessUseCase_ProcessFatalSourceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("disk on fire")
	src := mocks.NewMockRecordSource(ctrl)
	gomock.InOrder(
		src.EXPECT().Next(gomock.Any()).Return(domain.Deposit{ID: 1, Client: 1, Amount: dec("1")}, nil),
		src.EXPECT().Next(gomock.Any()).Return(nil, boom),
	)

	l := ledger.New()
	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop())

	stats, err := uc.Process(context.Background(), l, src, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fatal source error, got %v", err)
	}
	if stats.Applied != 1 {
		t.Errorf("expected the record before the failure to be applied, got %+v", stats)
	}
}

func TestProcessUseCase_ProcessNilRecordIsMalformed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := mocks.NewMockRecordSource(ctrl)
	gomock.InOrder(
		src.EXPECT().Next(gomock.Any()).Return(nil, nil),
		src.EXPECT().Next(gomock.Any()).Return(nil, io.EOF),
	)

	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop())

	stats, err := uc.Process(context.Background(), ledger.New(), src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Malformed != 1 || stats.Records != 0 {
		t.Fatalf("expected one malformed record, got %+v", stats)
	}
}

func TestProcessUseCase_ProcessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := mocks.NewSliceSource(domain.Deposit{ID: 1, Client: 1, Amount: dec("1")})
	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop())
	l := ledger.New()

	_, err := uc.Process(ctx, l, src, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected nothing applied after cancellation")
	}
}

func TestProcessUseCase_RunDrainsSourcesInOrder(t *testing.T) {
	first := mocks.NewSliceSource(
		domain.Deposit{ID: 1, Client: 1, Amount: dec("10")},
		domain.Deposit{ID: 2, Client: 2, Amount: dec("3")},
	)
	second := mocks.NewSliceSource(
		domain.Dispute{Client: 1, Ref: 1},
		domain.Chargeback{Client: 1, Ref: 1},
		domain.Deposit{ID: 3, Client: 1, Amount: dec("1")},
	)

	exporter := &mocks.RecordingExporter{}
	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop(),
		usecase.WithExporter("memory", exporter))

	report, err := uc.Run(context.Background(), usecase.RunInput{
		Sources: []usecase.RecordSource{first, second},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ID != "run-1" {
		t.Errorf("expected run id run-1, got %s", report.ID)
	}
	if len(report.Accounts) != 2 || report.Accounts[0].Client != 1 {
		t.Fatalf("unexpected accounts %+v", report.Accounts)
	}
	if !report.Accounts[0].Locked || !report.Accounts[0].Total.IsZero() {
		t.Errorf("expected client 1 charged back and locked, got %+v", report.Accounts[0])
	}
	if report.Stats.Rejected != 1 || report.Stats.Applied != 4 {
		t.Errorf("unexpected stats %+v", report.Stats)
	}
	if len(report.LockedAccounts()) != 1 {
		t.Errorf("expected one locked account")
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("finished before started")
	}

	if got := exporter.Reports(); len(got) != 1 || got[0] != report {
		t.Fatalf("expected exporter to receive the report once, got %d", len(got))
	}
}

func TestProcessUseCase_RunFatalErrorSkipsExport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := mocks.NewMockRecordSource(ctrl)
	src.EXPECT().Next(gomock.Any()).Return(nil, errors.New("connection reset"))

	exporter := mocks.NewMockSnapshotExporter(ctrl)
	exporter.EXPECT().Export(gomock.Any(), gomock.Any()).Times(0)

	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop(),
		usecase.WithExporter("mock", exporter))

	report, err := uc.Run(context.Background(), usecase.RunInput{Sources: []usecase.RecordSource{src}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if report != nil {
		t.Fatalf("expected no report on fatal error")
	}
}

func TestProcessUseCase_RunExportFailureContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failing := mocks.NewMockSnapshotExporter(ctrl)
	failing.EXPECT().Export(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	after := &mocks.RecordingExporter{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop(),
		usecase.WithExporter("postgres", failing),
		usecase.WithExporter("memory", after),
		usecase.WithMetrics(m))

	report, err := uc.Run(context.Background(), usecase.RunInput{
		Sources: []usecase.RecordSource{mocks.NewSliceSource(domain.Deposit{ID: 1, Client: 1, Amount: dec("1")})},
	})
	if err == nil {
		t.Fatalf("expected export error")
	}
	if report == nil || len(report.Accounts) != 1 {
		t.Fatalf("expected report despite export failure, got %+v", report)
	}
	if len(after.Reports()) != 1 {
		t.Errorf("expected later exporter to still run")
	}
	if got := testutil.ToFloat64(m.ExportErrors.WithLabelValues("postgres")); got != 1 {
		t.Errorf("expected one export error, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("export_failed")); got != 1 {
		t.Errorf("expected run counted as export_failed, got %v", got)
	}
}

func TestProcessUseCase_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	uc := usecase.NewProcessUseCase(&mocks.SequenceIDGenerator{}, zerolog.Nop(), usecase.WithMetrics(m))

	src := mocks.NewRecordSource(
		mocks.Record{Tx: domain.Deposit{ID: 1, Client: 1, Amount: dec("1")}},
		mocks.Record{Tx: domain.Withdrawal{ID: 2, Client: 1, Amount: dec("5")}},
		mocks.Record{Err: malformed("x")},
	)

	if _, err := uc.Run(context.Background(), usecase.RunInput{Sources: []usecase.RecordSource{src}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.RecordsApplied.WithLabelValues("deposit")); got != 1 {
		t.Errorf("expected 1 applied deposit, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsRejected.WithLabelValues("withdrawal", "insufficient_funds")); got != 1 {
		t.Errorf("expected 1 rejected withdrawal, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsMalformed); got != 1 {
		t.Errorf("expected 1 malformed record, got %v", got)
	}
	if got := testutil.ToFloat64(m.AccountsTotal); got != 1 {
		t.Errorf("expected accounts gauge 1, got %v", got)
	}
}
