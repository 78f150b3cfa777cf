package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits amounts are rendered with.
const AmountPlaces = 4

// MaxAmountScale bounds both the fractional digits and the integer digits an
// amount may carry.
const MaxAmountScale = 28

var maxAmount = decimal.New(1, MaxAmountScale)

// ParseKind parses a record type tag. Matching ignores case and surrounding
// whitespace.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrMalformedRecord, s)
	}
}

// ParseClientID parses an unsigned 16-bit client id.
func ParseClientID(s string) (ClientID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid client %q", ErrMalformedRecord, s)
	}
	return ClientID(v), nil
}

// ParseTransactionID parses an unsigned 32-bit transaction id.
func ParseTransactionID(s string) (TransactionID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid tx %q", ErrMalformedRecord, s)
	}
	return TransactionID(v), nil
}

// ParseAmount parses a plain decimal amount exactly. Exponent notation is
// refused, and so are amounts with more than MaxAmountScale integer or
// fractional digits. Sign is not checked here; non-positive amounts are a
// ledger rule, not a parse error.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: missing amount", ErrMalformedRecord)
	}
	if len(s) > 2*MaxAmountScale+2 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrMalformedRecord, truncate(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrMalformedRecord, s)
	}
	if d.Exponent() < -MaxAmountScale || d.Abs().Cmp(maxAmount) >= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount %q out of range", ErrMalformedRecord, s)
	}
	return d, nil
}

func truncate(s string) string {
	const limit = 32
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// FormatAmount renders an amount with AmountPlaces fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// ParseTransaction builds a transaction from the textual fields of a record.
// The amount is required for deposits and withdrawals and ignored for the
// dispute family.
func ParseTransaction(kind, client, tx, amount string) (Transaction, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	cid, err := ParseClientID(client)
	if err != nil {
		return nil, err
	}
	tid, err := ParseTransactionID(tx)
	if err != nil {
		return nil, err
	}

	switch k {
	case KindDeposit, KindWithdrawal:
		amt, err := ParseAmount(amount)
		if err != nil {
			return nil, err
		}
		if k == KindDeposit {
			return Deposit{ID: tid, Client: cid, Amount: amt}, nil
		}
		return Withdrawal{ID: tid, Client: cid, Amount: amt}, nil
	case KindDispute:
		return Dispute{Client: cid, Ref: tid}, nil
	case KindResolve:
		return Resolve{Client: cid, Ref: tid}, nil
	default:
		return Chargeback{Client: cid, Ref: tid}, nil
	}
}
