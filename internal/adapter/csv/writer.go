package csv

import (
	"context"
	stdcsv "encoding/csv"
	"io"
	"strconv"

	"github.com/iho/txengine/internal/domain"
)

// Header is the header row of the account table.
var Header = []string{"client", "available", "held", "total", "locked"}

// Writer writes account tables.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Export writes the accounts of report.
func (w *Writer) Export(_ context.Context, report *domain.RunReport) error {
	return w.WriteAccounts(report.Accounts)
}

// WriteAccounts writes the header and one row per account, amounts with four
// fractional digits.
func (w *Writer) WriteAccounts(accounts []domain.AccountSnapshot) error {
	cw := stdcsv.NewWriter(w.w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	row := make([]string, len(Header))
	for _, a := range accounts {
		row[0] = strconv.FormatUint(uint64(a.Client), 10)
		row[1] = domain.FormatAmount(a.Available)
		row[2] = domain.FormatAmount(a.Held)
		row[3] = domain.FormatAmount(a.Total)
		row[4] = strconv.FormatBool(a.Locked)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
