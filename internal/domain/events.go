package domain

import (
	"strconv"
	"time"
)

// Event types
const (
	EventTypeAccountSnapshot = "account.snapshot"
	EventTypeAccountLocked   = "account.locked"
	EventTypeRunCompleted    = "run.completed"
)

// Aggregate types
const (
	AggregateTypeAccount = "account"
	AggregateTypeRun     = "run"
)

// Event is a message published about a finished run.
type Event struct {
	ID            string
	RunID         string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       any
	CreatedAt     time.Time
}

// AccountSnapshotEvent payload
type AccountSnapshotEvent struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// RunCompletedEvent payload
type RunCompletedEvent struct {
	Accounts   int    `json:"accounts"`
	Locked     int    `json:"locked"`
	Records    int    `json:"records"`
	Applied    int    `json:"applied"`
	Rejected   int    `json:"rejected"`
	Malformed  int    `json:"malformed"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// NewAccountSnapshotEvent builds the payload for one account row.
func NewAccountSnapshotEvent(a AccountSnapshot) AccountSnapshotEvent {
	return AccountSnapshotEvent{
		Client:    uint16(a.Client),
		Available: FormatAmount(a.Available),
		Held:      FormatAmount(a.Held),
		Total:     FormatAmount(a.Total),
		Locked:    a.Locked,
	}
}

// ClientAggregateID is the aggregate id used for account events.
func ClientAggregateID(c ClientID) string {
	return strconv.FormatUint(uint64(c), 10)
}
