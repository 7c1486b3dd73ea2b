package orchestrator

import (
	"time"

	"quizsmith/internal/budget"
	"quizsmith/internal/types"
)

// Disposition names the terminal state a session ended in. There is no
// silent termination: every session ends approved or in a named failure.
type Disposition string

const (
	DispositionApproved       Disposition = "approved"
	DispositionFailedBudget   Disposition = "failed_budget"
	DispositionFailedMaxRound Disposition = "failed_max_rounds"
	DispositionFailedParse    Disposition = "failed_parse"
)

// Result is the session result emitted at the collaborator boundary.
// Persistence, export, and presentation of it are entirely the caller's
// responsibility. On failure dispositions Draft carries the best draft
// produced so far, if any, rather than discarding work.
type Result struct {
	SessionID   string                  `json:"session_id"`
	Disposition Disposition             `json:"disposition"`
	Reason      string                  `json:"reason,omitempty"`
	Draft       *types.Draft            `json:"draft,omitempty"`
	Unresolved  []types.Issue           `json:"unresolved,omitempty"`
	Critiques   []*types.CritiqueReport `json:"critiques,omitempty"`
	Budget      budget.SessionBudget    `json:"budget"`
	Ledger      []budget.LedgerEntry    `json:"ledger,omitempty"`
	Rounds      int                     `json:"rounds"`
	Duration    time.Duration           `json:"duration"`
}

// Approved reports whether the session ended in approval.
func (r *Result) Approved() bool { return r.Disposition == DispositionApproved }
