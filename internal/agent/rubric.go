package agent

import (
	"fmt"
	"strings"

	"quizsmith/internal/types"
)

// Rule is one deterministic quality check applied to a draft.
type Rule struct {
	Name  string
	Check func(draft *types.Draft, gctx types.GenerationContext) []types.Issue
}

// Rubric is the fixed, ordered rule set the Critic applies. The default
// rubric covers structural plausibility, answer-key consistency, duplicate
// detection, distribution alignment, and readability.
type Rubric []Rule

// Names lists the rule names in rubric order.
func (r Rubric) Names() []string {
	names := make([]string, len(r))
	for i, rule := range r {
		names[i] = rule.Name
	}
	return names
}

// Evaluate runs every rule in order and stamps each issue with the rule name
// that produced it. The result is deterministic for a given draft.
func (r Rubric) Evaluate(draft *types.Draft, gctx types.GenerationContext) []types.Issue {
	var issues []types.Issue
	for _, rule := range r {
		for _, issue := range rule.Check(draft, gctx) {
			if issue.Rule == "" {
				issue.Rule = rule.Name
			}
			issues = append(issues, issue)
		}
	}
	return issues
}

// DefaultRubric returns the standard rule set.
func DefaultRubric() Rubric {
	return Rubric{
		{Name: "structure", Check: checkStructure},
		{Name: "answer_key", Check: checkAnswerKey},
		{Name: "duplicate", Check: checkDuplicates},
		{Name: "distribution", Check: checkDistribution},
		{Name: "readability", Check: checkReadability},
	}
}

func checkStructure(draft *types.Draft, _ types.GenerationContext) []types.Issue {
	var issues []types.Issue
	for i, q := range draft.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			issues = append(issues, types.Issue{
				Severity: types.SeverityBlocking, QuestionIndex: i,
				Message: "question has an empty prompt",
			})
			continue
		}
		switch q.Type {
		case types.MultipleChoice:
			if len(q.Options) < 3 {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: fmt.Sprintf("multiple-choice question has %d options, needs at least 3", len(q.Options)),
				})
			}
		case types.TrueFalse:
			if len(q.Options) != 0 && len(q.Options) != 2 {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: "true/false question must offer exactly the two truth values",
				})
			}
		case types.Matching:
			if len(q.Options) < 4 {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: "matching question needs at least two term/definition pairs",
				})
			}
		}
		if q.Points <= 0 {
			issues = append(issues, types.Issue{
				Severity: types.SeverityAdvisory, QuestionIndex: i,
				Message: "question has no point value",
			})
		}
	}
	return issues
}

func checkAnswerKey(draft *types.Draft, _ types.GenerationContext) []types.Issue {
	var issues []types.Issue
	for i, q := range draft.Questions {
		if strings.TrimSpace(q.Answer) == "" {
			issues = append(issues, types.Issue{
				Severity: types.SeverityBlocking, QuestionIndex: i,
				Message: "question has no answer key",
			})
			continue
		}
		switch q.Type {
		case types.MultipleChoice:
			found := false
			for _, opt := range q.Options {
				if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(q.Answer)) {
					found = true
					break
				}
			}
			if !found {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: "answer is not one of the listed options",
				})
			}
		case types.TrueFalse:
			a := strings.ToLower(strings.TrimSpace(q.Answer))
			if a != "true" && a != "false" {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: fmt.Sprintf("true/false answer must be True or False, got %q", q.Answer),
				})
			}
		}
	}
	return issues
}

// checkDuplicates flags exact and near-duplicate prompts. Near-duplicates
// are detected by token-set Jaccard similarity above 0.9 after
// normalization.
func checkDuplicates(draft *types.Draft, _ types.GenerationContext) []types.Issue {
	var issues []types.Issue
	norms := make([]string, len(draft.Questions))
	tokens := make([]map[string]struct{}, len(draft.Questions))
	for i, q := range draft.Questions {
		norms[i] = normalizePrompt(q.Prompt)
		tokens[i] = tokenSet(norms[i])
	}
	for i := 1; i < len(draft.Questions); i++ {
		for j := 0; j < i; j++ {
			if norms[i] == "" || norms[j] == "" {
				continue
			}
			if norms[i] == norms[j] {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: fmt.Sprintf("duplicate of question %d", j+1),
				})
				break
			}
			if jaccard(tokens[i], tokens[j]) >= 0.9 {
				issues = append(issues, types.Issue{
					Severity: types.SeverityBlocking, QuestionIndex: i,
					Message: fmt.Sprintf("near-duplicate of question %d", j+1),
				})
				break
			}
		}
	}
	return issues
}

func checkDistribution(draft *types.Draft, gctx types.GenerationContext) []types.Issue {
	if len(gctx.Distribution) == 0 {
		return nil
	}
	counts := draft.TypeCounts()
	var mismatches []string
	for _, qt := range types.AllQuestionTypes {
		want := gctx.Distribution[qt]
		if counts[qt] != want {
			mismatches = append(mismatches, fmt.Sprintf("%s: want %d, got %d", qt, want, counts[qt]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return []types.Issue{{
		Severity:      types.SeverityBlocking,
		QuestionIndex: types.DraftLevelIssue,
		Message:       "draft does not match the requested distribution: " + strings.Join(mismatches, "; "),
	}}
}

// checkReadability estimates a Flesch-Kincaid grade per prompt and flags
// prompts more than three grades away from the target level. Advisory only:
// readability drift is worth surfacing but should not block approval.
func checkReadability(draft *types.Draft, gctx types.GenerationContext) []types.Issue {
	target := types.DefaultStyleProfile().ReadingLevel
	if gctx.Style != nil && gctx.Style.ReadingLevel > 0 {
		target = gctx.Style.ReadingLevel
	}
	var issues []types.Issue
	for i, q := range draft.Questions {
		grade := fleschKincaidGrade(q.Prompt)
		if grade < 0 {
			continue
		}
		diff := grade - float64(target)
		if diff > 3 || diff < -3 {
			issues = append(issues, types.Issue{
				Severity: types.SeverityAdvisory, QuestionIndex: i,
				Message: fmt.Sprintf("estimated reading level grade %.0f differs from target grade %d", grade, target),
			})
		}
	}
	return issues
}

func normalizePrompt(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// fleschKincaidGrade returns the FK grade estimate for text, or -1 when the
// text is too short to score.
func fleschKincaidGrade(text string) float64 {
	words := strings.Fields(text)
	if len(words) < 4 {
		return -1
	}
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '?' || r == '!' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	wps := float64(len(words)) / float64(sentences)
	spw := float64(syllables) / float64(len(words))
	return 0.39*wps + 11.8*spw - 15.59
}

func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
