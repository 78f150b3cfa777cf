package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks input that could not be parsed into a transaction.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidTransaction marks a well formed transaction the ledger discarded.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Ledger rule violations. Each wraps ErrInvalidTransaction.
var (
	ErrDuplicateTransaction = fmt.Errorf("%w: duplicate transaction id", ErrInvalidTransaction)
	ErrNonPositiveAmount    = fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	ErrAccountLocked        = fmt.Errorf("%w: account is locked", ErrInvalidTransaction)
	ErrInsufficientFunds    = fmt.Errorf("%w: insufficient available funds", ErrInvalidTransaction)
	ErrUnknownTransaction   = fmt.Errorf("%w: referenced transaction not found", ErrInvalidTransaction)
	ErrClientMismatch       = fmt.Errorf("%w: referenced transaction belongs to another client", ErrInvalidTransaction)
	ErrNotDisputable        = fmt.Errorf("%w: transaction is not disputable", ErrInvalidTransaction)
	ErrNotDisputed          = fmt.Errorf("%w: transaction is not under dispute", ErrInvalidTransaction)
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrDuplicateTransaction, "duplicate_transaction"},
	{ErrNonPositiveAmount, "non_positive_amount"},
	{ErrAccountLocked, "account_locked"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrUnknownTransaction, "unknown_transaction"},
	{ErrClientMismatch, "client_mismatch"},
	{ErrNotDisputable, "not_disputable"},
	{ErrNotDisputed, "not_disputed"},
	{ErrMalformedRecord, "malformed_record"},
}

// Reason returns a short, stable label for a rejection error, suitable for
// metric labels and API responses.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	if errors.Is(err, ErrInvalidTransaction) {
		return "invalid_transaction"
	}
	return "unknown"
}
