package budget

import "time"

// Outcome classifies a ledger entry.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeRefused Outcome = "refused"
)

// LedgerEntry records one provider call attempt, successful or not.
type LedgerEntry struct {
	Time          time.Time `json:"time"`
	Operation     string    `json:"operation"`
	Backend       string    `json:"backend"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"`
	Outcome       Outcome   `json:"outcome"`
	Detail        string    `json:"detail,omitempty"`
}

// ledger is a fixed-capacity ring buffer of entries. Oldest entries are
// evicted beyond the cap so long sessions cannot grow without bound.
// Not safe for concurrent use; the governor serializes access.
type ledger struct {
	buf  []LedgerEntry
	next int
	full bool
}

func newLedger(capacity int) *ledger {
	if capacity <= 0 {
		capacity = 256
	}
	return &ledger{buf: make([]LedgerEntry, capacity)}
}

func (l *ledger) append(e LedgerEntry) {
	l.buf[l.next] = e
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

// snapshot returns retained entries oldest first.
func (l *ledger) snapshot() []LedgerEntry {
	if !l.full {
		out := make([]LedgerEntry, l.next)
		copy(out, l.buf[:l.next])
		return out
	}
	out := make([]LedgerEntry, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	out = append(out, l.buf[:l.next]...)
	return out
}
