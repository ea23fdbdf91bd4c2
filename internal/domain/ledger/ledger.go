package ledger

import "context"

// Repository persists ledger entries. Implementations must be
// append-only and durable across process restarts.
type Repository interface {
	// Append records one entry.
	Append(ctx context.Context, entry Entry) error

	// Entries returns all recorded entries in append order.
	Entries(ctx context.Context) ([]Entry, error)
}

// ReverifyPolicy controls how a new run treats steps the prior run
// recorded as succeeded.
type ReverifyPolicy string

const (
	// PolicyTrustLedger treats previously succeeded steps as satisfied
	// without re-probing.
	PolicyTrustLedger ReverifyPolicy = "trust-ledger"
	// PolicyAlwaysReverify re-probes every step regardless of ledger
	// history.
	PolicyAlwaysReverify ReverifyPolicy = "always-reverify"
)

// String returns the string representation of the policy.
func (p ReverifyPolicy) String() string {
	return string(p)
}

// Ledger is an in-memory view over recorded entries, used to seed
// idempotency decisions for a new run.
type Ledger struct {
	entries []Entry
}

// NewLedger creates a Ledger over the given entries (append order).
func NewLedger(entries []Entry) *Ledger {
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return &Ledger{entries: copied}
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns all entries in append order.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// StatusOf returns the latest recorded status for a step across all
// runs, or false if the step has never been recorded.
func (l *Ledger) StatusOf(stepID string) (Status, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].StepID == stepID {
			return l.entries[i].Status, true
		}
	}
	return "", false
}

// HasSucceeded returns true if the step's most recent terminal record
// is succeeded or satisfied.
func (l *Ledger) HasSucceeded(stepID string) bool {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.StepID != stepID || !e.Status.Terminal() {
			continue
		}
		return e.Status.Completed()
	}
	return false
}

// LatestRunID returns the run ID of the most recent entry, or empty if
// the ledger has no entries.
func (l *Ledger) LatestRunID() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].RunID
}

// RunEntries returns the entries belonging to one run, in append order.
func (l *Ledger) RunEntries(runID string) []Entry {
	entries := make([]Entry, 0)
	for _, e := range l.entries {
		if e.RunID == runID {
			entries = append(entries, e)
		}
	}
	return entries
}

// RunIDs returns all run IDs in first-seen order.
func (l *Ledger) RunIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, e := range l.entries {
		if !seen[e.RunID] {
			seen[e.RunID] = true
			ids = append(ids, e.RunID)
		}
	}
	return ids
}
