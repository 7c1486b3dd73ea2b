package agent

import (
	"fmt"
	"strings"

	"quizsmith/internal/types"
)

const generatorSystemPrompt = `You write assessment questions from supplied source material.
Ground every question only in the provided text. Respond with a single JSON
object of the form {"questions": [...]} where each question has fields
"type", "prompt", "options" (where applicable), "answer", "points", and
optionally "cognitive_level". Valid types: multiple_choice, true_false,
fill_in_blank, short_answer, matching, essay. Do not add commentary.`

const criticSystemPrompt = `You review draft assessment questions for quality.
Report findings as a single JSON object {"issues": [...]} where each issue
has "rule", "severity" ("blocking" or "advisory"), "question_index"
(zero-based, or null for draft-level findings), and "message". Report an
empty issues list when the draft is sound. Do not add commentary.`

const styleSystemPrompt = `You infer the stylistic profile of example assessment
material. Respond with a single JSON object with fields "tone" (one word),
"reading_level" (integer grade level), and optionally "type_mix" (question
type to fraction). Do not add commentary.`

// strictJSONReminder is appended to the prompt when a malformed response is
// retried, per the stricter-follow-up retry contract.
const strictJSONReminder = "\n\nIMPORTANT: the previous response could not be parsed. " +
	"Respond with exactly one valid JSON object and no surrounding text, " +
	"markdown fences, or commentary."

func buildGeneratorPrompt(gctx types.GenerationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target question count: %d\n", gctx.TargetCount)

	if len(gctx.Distribution) > 0 {
		b.WriteString("Requested distribution:\n")
		for _, qt := range types.AllQuestionTypes {
			if n := gctx.Distribution[qt]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", qt, n)
			}
		}
	}

	if gctx.Style != nil {
		fmt.Fprintf(&b, "Style: tone=%s, reading level=grade %d\n", gctx.Style.Tone, gctx.Style.ReadingLevel)
	}

	b.WriteString("\nSource material:\n")
	for i, seg := range gctx.Segments {
		fmt.Fprintf(&b, "--- segment %d ---\n%s\n", i+1, strings.TrimSpace(seg))
	}

	if gctx.PriorCritique != nil && len(gctx.PriorCritique.Issues) > 0 {
		b.WriteString("\nCorrections from the previous review. Every blocking item must be fixed:\n")
		for _, issue := range gctx.PriorCritique.Issues {
			where := "draft"
			if !issue.DraftLevel() {
				where = fmt.Sprintf("question %d", issue.QuestionIndex+1)
			}
			fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", issue.Severity, where, issue.Rule, issue.Message)
		}
	}
	return b.String()
}

func buildCriticPrompt(draft *types.Draft, gctx types.GenerationContext, rubric Rubric) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review draft version %d against these rules: %s.\n",
		draft.Version, strings.Join(rubric.Names(), ", "))
	fmt.Fprintf(&b, "Target question count: %d\n", gctx.TargetCount)
	if gctx.Style != nil {
		fmt.Fprintf(&b, "Target reading level: grade %d\n", gctx.Style.ReadingLevel)
	}
	b.WriteString("\nDraft questions:\n")
	for i, q := range draft.Questions {
		fmt.Fprintf(&b, "%d. [%s, %d pt] %s\n", i+1, q.Type, q.Points, q.Prompt)
		for _, opt := range q.Options {
			fmt.Fprintf(&b, "   - %s\n", opt)
		}
		fmt.Fprintf(&b, "   answer: %s\n", q.Answer)
	}
	return b.String()
}

func buildStylePrompt(examples []string) string {
	var b strings.Builder
	b.WriteString("Example assessment material:\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "--- example %d ---\n%s\n", i+1, strings.TrimSpace(ex))
	}
	return b.String()
}
