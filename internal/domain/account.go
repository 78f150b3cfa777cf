package domain

import (
	"github.com/shopspring/decimal"
)

// Account is the balance state of a single client.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns an empty, unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total is the account's full balance.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// ValidateDeposit checks if amount can be credited to the account.
func (a *Account) ValidateDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if a.Locked {
		return ErrAccountLocked
	}
	return nil
}

// ValidateWithdrawal checks if amount can leave the available balance.
func (a *Account) ValidateWithdrawal(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// ValidateHold checks if amount can be moved from available to held.
func (a *Account) ValidateHold(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	// Available must not go negative, even when the disputed deposit has
	// already been partly withdrawn.
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// Snapshot returns the exported view of the account.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// AccountSnapshot is one row of the final account table.
type AccountSnapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}
