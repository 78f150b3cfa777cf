package domain

import (
	"github.com/shopspring/decimal"
)

// DisputeStatus is the dispute state of a journaled deposit.
type DisputeStatus string

const (
	DisputeStatusNormal      DisputeStatus = "normal"
	DisputeStatusDisputed    DisputeStatus = "disputed"
	DisputeStatusChargedBack DisputeStatus = "charged_back"
)

// JournalEntry tracks a deposit that can still be disputed.
type JournalEntry struct {
	Client ClientID
	Amount decimal.Decimal
	Status DisputeStatus
}

// ValidateOwner checks that the entry belongs to client.
func (e *JournalEntry) ValidateOwner(client ClientID) error {
	if e.Client != client {
		return ErrClientMismatch
	}
	return nil
}

// ValidateDispute checks that the entry can be disputed.
func (e *JournalEntry) ValidateDispute() error {
	if e.Status != DisputeStatusNormal {
		return ErrNotDisputable
	}
	return nil
}

// ValidateSettle checks that the entry has an open dispute to resolve or
// charge back. A charged back entry is terminal.
func (e *JournalEntry) ValidateSettle() error {
	if e.Status != DisputeStatusDisputed {
		return ErrNotDisputed
	}
	return nil
}
