package dto

import (
	"encoding/json"

	"github.com/iho/txengine/internal/domain"
)

// BatchRequest is the JSON form of a batch of transaction records.
type BatchRequest struct {
	Transactions []TransactionRecord `json:"transactions"`
}

// TransactionRecord is one record of a JSON batch. Numbers may be sent as
// JSON numbers or strings.
type TransactionRecord struct {
	Type   string      `json:"type"`
	Client json.Number `json:"client"`
	Tx     json.Number `json:"tx"`
	Amount json.Number `json:"amount,omitempty"`
}

// ToTransaction converts the record to a domain transaction.
func (r TransactionRecord) ToTransaction() (domain.Transaction, error) {
	return domain.ParseTransaction(r.Type, r.Client.String(), r.Tx.String(), r.Amount.String())
}
