// Package csv reads transaction records from and writes account tables to
// comma separated text.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iho/txengine/internal/domain"
)

// Column names of the input header.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// ErrInvalidHeader is returned when the header row is missing or lacks a
// required column. It is fatal for the reader.
var ErrInvalidHeader = errors.New("invalid csv header")

// Reader yields transactions from CSV input with a header row.
//
// Columns are matched by header name, so their order may vary. Whitespace
// around fields is ignored, rows may stop before the amount column and lines
// starting with '#' are skipped.
type Reader struct {
	r      *stdcsv.Reader
	name   string
	header bool
	width  int
	typ    int
	client int
	tx     int
	amount int
}

// NewReader creates a Reader. name identifies the input in error messages
// and may be empty.
func NewReader(r io.Reader, name string) *Reader {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.ReuseRecord = true

	return &Reader{r: cr, name: name, amount: -1}
}

// Next returns the next transaction, io.EOF at the end of input, or an error
// wrapping domain.ErrMalformedRecord for a row that cannot be parsed.
func (r *Reader) Next(ctx context.Context) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.header {
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}

	for {
		record, err := r.r.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var perr *stdcsv.ParseError
		if errors.As(err, &perr) {
			return nil, r.malformed(perr.StartLine, perr.Err)
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		line, _ := r.r.FieldPos(0)
		if len(record) > r.width {
			return nil, r.malformed(line, fmt.Errorf("%d fields, header has %d", len(record), r.width))
		}

		tx, err := domain.ParseTransaction(field(record, r.typ), field(record, r.client), field(record, r.tx), field(record, r.amount))
		if err != nil {
			return nil, r.wrap(line, err)
		}
		return tx, nil
	}
}

func (r *Reader) readHeader() error {
	record, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty input", ErrInvalidHeader)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	idx := map[string]int{}
	for i, name := range record {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := idx[name]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidHeader, name)
		}
		idx[name] = i
	}

	for _, col := range []string{ColumnType, ColumnClient, ColumnTx} {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrInvalidHeader, col)
		}
	}

	r.typ, r.client, r.tx = idx[ColumnType], idx[ColumnClient], idx[ColumnTx]
	if i, ok := idx[ColumnAmount]; ok {
		r.amount = i
	}
	r.width = len(record)
	r.header = true
	return nil
}

func (r *Reader) malformed(line int, err error) error {
	return r.wrap(line, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err))
}

func (r *Reader) wrap(line int, err error) error {
	if r.name != "" {
		return fmt.Errorf("%s:%d: %w", r.name, line, err)
	}
	return fmt.Errorf("line %d: %w", line, err)
}

// field returns the i-th field, or "" when the row is shorter or the column
// does not exist.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
