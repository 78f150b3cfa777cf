package domain

import "time"

// RunStats counts what happened to the records of a run.
type RunStats struct {
	Records   int // well formed records read
	Applied   int
	Rejected  int
	Malformed int
}

// Add returns the sum of two stats.
func (s RunStats) Add(o RunStats) RunStats {
	return RunStats{
		Records:   s.Records + o.Records,
		Applied:   s.Applied + o.Applied,
		Rejected:  s.Rejected + o.Rejected,
		Malformed: s.Malformed + o.Malformed,
	}
}

// RunReport is the outcome of draining one or more sources into a fresh ledger.
type RunReport struct {
	ID         string
	Accounts   []AccountSnapshot
	Stats      RunStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// LockedAccounts returns the snapshots of locked accounts, in table order.
func (r *RunReport) LockedAccounts() []AccountSnapshot {
	var locked []AccountSnapshot
	for _, a := range r.Accounts {
		if a.Locked {
			locked = append(locked, a)
		}
	}
	return locked
}
