package types

import "sort"

// Severity classifies a critique finding. Blocking issues prevent approval;
// advisory issues are informational only.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Verdict is the binary outcome of a critique.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

// DraftLevelIssue marks an Issue that applies to the draft as a whole
// rather than to a specific question.
const DraftLevelIssue = -1

// Issue is a single critique finding.
type Issue struct {
	Rule          string   `json:"rule"`
	Severity      Severity `json:"severity"`
	QuestionIndex int      `json:"question_index"` // DraftLevelIssue for draft-level findings
	Message       string   `json:"message"`
}

// DraftLevel reports whether the issue applies to the whole draft.
func (i Issue) DraftLevel() bool { return i.QuestionIndex == DraftLevelIssue }

// CritiqueReport is the Critic's structured evaluation of exactly one Draft
// version. The verdict is derived from the issue list, never set directly:
// a report approves if and only if it contains zero blocking issues.
type CritiqueReport struct {
	DraftVersion int     `json:"draft_version"`
	Verdict      Verdict `json:"verdict"`
	Issues       []Issue `json:"issues"`
}

// NewCritiqueReport builds a report for the given draft version. Issues are
// ordered by question index (draft-level findings first), preserving the
// original order within a question so rubric ordering is stable. The verdict
// is computed from the blocking count.
func NewCritiqueReport(draftVersion int, issues []Issue) *CritiqueReport {
	ordered := make([]Issue, len(issues))
	copy(ordered, issues)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].QuestionIndex < ordered[b].QuestionIndex
	})
	report := &CritiqueReport{
		DraftVersion: draftVersion,
		Verdict:      VerdictApprove,
		Issues:       ordered,
	}
	if report.BlockingCount() > 0 {
		report.Verdict = VerdictReject
	}
	return report
}

// BlockingCount returns the number of blocking issues in the report.
func (r *CritiqueReport) BlockingCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityBlocking {
			n++
		}
	}
	return n
}

// BlockingIssues returns only the blocking findings, in report order.
func (r *CritiqueReport) BlockingIssues() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityBlocking {
			out = append(out, issue)
		}
	}
	return out
}
