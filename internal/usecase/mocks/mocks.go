package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/iho/txengine/internal/domain"
)

// Record is one step of a SliceSource: either a transaction or an error.
type Record struct {
	Tx  domain.Transaction
	Err error
}

// SliceSource is an in-memory RecordSource. It yields its records in order
// and then io.EOF forever.
type SliceSource struct {
	mu      sync.Mutex
	records []Record
	pos     int
}

// NewSliceSource creates a source yielding txs in order.
func NewSliceSource(txs ...domain.Transaction) *SliceSource {
	s := &SliceSource{}
	for _, tx := range txs {
		s.records = append(s.records, Record{Tx: tx})
	}
	return s
}

// NewRecordSource creates a source that may interleave errors with
// transactions.
func NewRecordSource(records ...Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next(ctx context.Context) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r.Tx, r.Err
}

// RecordingExporter keeps every report it receives.
type RecordingExporter struct {
	mu      sync.Mutex
	reports []*domain.RunReport

	ExportFunc func(ctx context.Context, report *domain.RunReport) error
}

func (e *RecordingExporter) Export(ctx context.Context, report *domain.RunReport) error {
	e.mu.Lock()
	e.reports = append(e.reports, report)
	e.mu.Unlock()
	if e.ExportFunc != nil {
		return e.ExportFunc(ctx, report)
	}
	return nil
}

// Reports returns the received reports.
func (e *RecordingExporter) Reports() []*domain.RunReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*domain.RunReport(nil), e.reports...)
}

// SequenceIDGenerator returns run-1, run-2, ...
type SequenceIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("run-%d", g.n)
}
