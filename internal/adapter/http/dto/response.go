package dto

import (
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/ledger"
)

// AccountResponse represents an account row in API responses. Amounts are
// strings with four fractional digits.
type AccountResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// AccountFromDomain converts a domain snapshot to response.
func AccountFromDomain(a domain.AccountSnapshot) AccountResponse {
	return AccountResponse{
		Client:    uint16(a.Client),
		Available: domain.FormatAmount(a.Available),
		Held:      domain.FormatAmount(a.Held),
		Total:     domain.FormatAmount(a.Total),
		Locked:    a.Locked,
	}
}

// AccountsFromDomain converts domain snapshots to responses.
func AccountsFromDomain(accounts []domain.AccountSnapshot) []AccountResponse {
	result := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// StatsResponse counts what happened to the records of a batch.
type StatsResponse struct {
	Records   int `json:"records"`
	Applied   int `json:"applied"`
	Rejected  int `json:"rejected"`
	Malformed int `json:"malformed"`
}

// RejectionResponse describes one discarded record. Kind, Client and Tx are
// absent for records that could not be parsed.
type RejectionResponse struct {
	Kind   string  `json:"kind,omitempty"`
	Client *uint16 `json:"client,omitempty"`
	Tx     *uint32 `json:"tx,omitempty"`
	Reason string  `json:"reason"`
	Error  string  `json:"error"`
}

// RejectionFromLedger converts a recorded rejection to response.
func RejectionFromLedger(r ledger.Rejection) RejectionResponse {
	resp := RejectionResponse{
		Reason: domain.Reason(r.Err),
		Error:  r.Err.Error(),
	}
	if r.Transaction != nil {
		client := uint16(r.Transaction.ClientID())
		tx := uint32(r.Transaction.TxID())
		resp.Kind = string(r.Transaction.Kind())
		resp.Client = &client
		resp.Tx = &tx
	}
	return resp
}

// BatchResponse is the result of processing one batch.
type BatchResponse struct {
	RunID      string              `json:"run_id"`
	Accounts   []AccountResponse   `json:"accounts"`
	Stats      StatsResponse       `json:"stats"`
	Rejections []RejectionResponse `json:"rejections"`
}

// BatchFromReport builds the response for a finished run.
func BatchFromReport(report *domain.RunReport, rejections []ledger.Rejection) BatchResponse {
	resp := BatchResponse{
		RunID:    report.ID,
		Accounts: AccountsFromDomain(report.Accounts),
		Stats: StatsResponse{
			Records:   report.Stats.Records,
			Applied:   report.Stats.Applied,
			Rejected:  report.Stats.Rejected,
			Malformed: report.Stats.Malformed,
		},
		Rejections: make([]RejectionResponse, len(rejections)),
	}
	for i, r := range rejections {
		resp.Rejections[i] = RejectionFromLedger(r)
	}
	return resp
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
