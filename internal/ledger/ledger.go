// Package ledger implements the client account state machine: deposits,
// withdrawals and the dispute, resolve and chargeback lifecycle of deposits.
//
// A Ledger is single-writer. Records must be applied one at a time in arrival
// order; independent account spaces use independent Ledger values.
package ledger

import (
	"fmt"

	"github.com/iho/txengine/internal/domain"
)

// Ledger owns every account and the dispute journal of one run.
type Ledger struct {
	accounts map[domain.ClientID]*domain.Account
	order    []domain.ClientID
	journal  map[domain.TransactionID]*domain.JournalEntry
	sink     RejectionSink
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRejectionSink makes the ledger report every discarded record to sink.
func WithRejectionSink(sink RejectionSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[domain.ClientID]*domain.Account),
		journal:  make(map[domain.TransactionID]*domain.JournalEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply applies one transaction.
//
// A transaction that violates a ledger rule leaves the ledger untouched. The
// returned error wraps domain.ErrInvalidTransaction and is also passed to the
// rejection sink, if any; callers are free to ignore it.
func (l *Ledger) Apply(tx domain.Transaction) error {
	var err error
	switch t := tx.(type) {
	case domain.Deposit:
		err = l.deposit(t)
	case domain.Withdrawal:
		err = l.withdraw(t)
	case domain.Dispute:
		err = l.dispute(t)
	case domain.Resolve:
		err = l.resolve(t)
	case domain.Chargeback:
		err = l.chargeback(t)
	default:
		err = fmt.Errorf("%w: unsupported transaction %T", domain.ErrMalformedRecord, tx)
	}

	if err != nil && l.sink != nil {
		l.sink.Reject(tx, err)
	}
	return err
}

func (l *Ledger) deposit(d domain.Deposit) error {
	if _, ok := l.journal[d.ID]; ok {
		return fmt.Errorf("deposit %d: %w", d.ID, domain.ErrDuplicateTransaction)
	}

	account := l.account(d.Client)
	if err := account.ValidateDeposit(d.Amount); err != nil {
		return fmt.Errorf("deposit %d: %w", d.ID, err)
	}

	l.journal[d.ID] = &domain.JournalEntry{
		Client: d.Client,
		Amount: d.Amount,
		Status: domain.DisputeStatusNormal,
	}
	account.Available = account.Available.Add(d.Amount)
	l.store(account)
	return nil
}

func (l *Ledger) withdraw(w domain.Withdrawal) error {
	account := l.account(w.Client)
	if err := account.ValidateWithdrawal(w.Amount); err != nil {
		return fmt.Errorf("withdrawal %d: %w", w.ID, err)
	}

	account.Available = account.Available.Sub(w.Amount)
	l.store(account)
	return nil
}

func (l *Ledger) dispute(d domain.Dispute) error {
	entry, err := l.entry(d.Client, d.Ref)
	if err != nil {
		return fmt.Errorf("dispute %d: %w", d.Ref, err)
	}
	if err := entry.ValidateDispute(); err != nil {
		return fmt.Errorf("dispute %d: %w", d.Ref, err)
	}

	account := l.account(d.Client)
	if err := account.ValidateHold(entry.Amount); err != nil {
		return fmt.Errorf("dispute %d: %w", d.Ref, err)
	}

	entry.Status = domain.DisputeStatusDisputed
	account.Available = account.Available.Sub(entry.Amount)
	account.Held = account.Held.Add(entry.Amount)
	return nil
}

func (l *Ledger) resolve(r domain.Resolve) error {
	entry, err := l.entry(r.Client, r.Ref)
	if err != nil {
		return fmt.Errorf("resolve %d: %w", r.Ref, err)
	}
	if err := entry.ValidateSettle(); err != nil {
		return fmt.Errorf("resolve %d: %w", r.Ref, err)
	}

	account := l.account(r.Client)
	entry.Status = domain.DisputeStatusNormal
	account.Held = account.Held.Sub(entry.Amount)
	account.Available = account.Available.Add(entry.Amount)
	return nil
}

func (l *Ledger) chargeback(c domain.Chargeback) error {
	entry, err := l.entry(c.Client, c.Ref)
	if err != nil {
		return fmt.Errorf("chargeback %d: %w", c.Ref, err)
	}
	if err := entry.ValidateSettle(); err != nil {
		return fmt.Errorf("chargeback %d: %w", c.Ref, err)
	}

	account := l.account(c.Client)
	entry.Status = domain.DisputeStatusChargedBack
	account.Held = account.Held.Sub(entry.Amount)
	account.Locked = true
	return nil
}

// entry looks up the journal entry ref and checks it belongs to client.
func (l *Ledger) entry(client domain.ClientID, ref domain.TransactionID) (*domain.JournalEntry, error) {
	entry, ok := l.journal[ref]
	if !ok {
		return nil, domain.ErrUnknownTransaction
	}
	if err := entry.ValidateOwner(client); err != nil {
		return nil, err
	}
	return entry, nil
}

// account returns the client's account, or a fresh one that is not yet part
// of the ledger. Rejected records must not create accounts, so new accounts
// are only stored once a record is accepted.
func (l *Ledger) account(client domain.ClientID) *domain.Account {
	if a, ok := l.accounts[client]; ok {
		return a
	}
	return domain.NewAccount(client)
}

func (l *Ledger) store(a *domain.Account) {
	if _, ok := l.accounts[a.Client]; ok {
		return
	}
	l.accounts[a.Client] = a
	l.order = append(l.order, a.Client)
}

// Snapshot returns every account, ordered by the client's first accepted
// transaction.
func (l *Ledger) Snapshot() []domain.AccountSnapshot {
	out := make([]domain.AccountSnapshot, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.accounts[id].Snapshot())
	}
	return out
}

// Account returns the snapshot of a single account.
func (l *Ledger) Account(client domain.ClientID) (domain.AccountSnapshot, bool) {
	a, ok := l.accounts[client]
	if !ok {
		return domain.AccountSnapshot{}, false
	}
	return a.Snapshot(), true
}

// Entry returns a copy of the journal entry for a deposit.
func (l *Ledger) Entry(id domain.TransactionID) (domain.JournalEntry, bool) {
	e, ok := l.journal[id]
	if !ok {
		return domain.JournalEntry{}, false
	}
	return *e, true
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	return len(l.order)
}
