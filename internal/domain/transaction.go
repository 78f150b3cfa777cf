package domain

import (
	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TransactionID identifies a deposit or withdrawal. IDs are unique across
// the whole input stream, not per client.
type TransactionID uint32

// Kind is the type tag of a transaction record.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// Kinds lists every record kind in declaration order.
var Kinds = []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

// Transaction is a single record of the input stream.
//
// The set of implementations is closed: Deposit, Withdrawal, Dispute, Resolve
// and Chargeback. Consumers switch on the concrete type.
type Transaction interface {
	Kind() Kind
	ClientID() ClientID
	// TxID is the record's own id for deposits and withdrawals and the
	// referenced deposit id for disputes, resolves and chargebacks.
	TxID() TransactionID

	transaction()
}

// Deposit credits the client's available funds.
type Deposit struct {
	ID     TransactionID
	Client ClientID
	Amount decimal.Decimal
}

// Withdrawal debits the client's available funds.
type Withdrawal struct {
	ID     TransactionID
	Client ClientID
	Amount decimal.Decimal
}

// Dispute moves a prior deposit's amount from available to held.
type Dispute struct {
	Client ClientID
	Ref    TransactionID
}

// Resolve releases a disputed amount back to available.
type Resolve struct {
	Client ClientID
	Ref    TransactionID
}

// Chargeback removes a disputed amount and locks the account.
type Chargeback struct {
	Client ClientID
	Ref    TransactionID
}

func (Deposit) Kind() Kind            { return KindDeposit }
func (d Deposit) ClientID() ClientID  { return d.Client }
func (d Deposit) TxID() TransactionID { return d.ID }
func (Deposit) transaction()          {}

func (Withdrawal) Kind() Kind            { return KindWithdrawal }
func (w Withdrawal) ClientID() ClientID  { return w.Client }
func (w Withdrawal) TxID() TransactionID { return w.ID }
func (Withdrawal) transaction()          {}

func (Dispute) Kind() Kind            { return KindDispute }
func (d Dispute) ClientID() ClientID  { return d.Client }
func (d Dispute) TxID() TransactionID { return d.Ref }
func (Dispute) transaction()          {}

func (Resolve) Kind() Kind            { return KindResolve }
func (r Resolve) ClientID() ClientID  { return r.Client }
func (r Resolve) TxID() TransactionID { return r.Ref }
func (Resolve) transaction()          {}

func (Chargeback) Kind() Kind            { return KindChargeback }
func (c Chargeback) ClientID() ClientID  { return c.Client }
func (c Chargeback) TxID() TransactionID { return c.Ref }
func (Chargeback) transaction()          {}
