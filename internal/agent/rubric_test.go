package agent

import (
	"testing"

	"quizsmith/internal/types"
)

func issuesForRule(issues []types.Issue, rule string) []types.Issue {
	var out []types.Issue
	for _, i := range issues {
		if i.Rule == rule {
			out = append(out, i)
		}
	}
	return out
}

func TestRubric_Structure(t *testing.T) {
	draft := &types.Draft{Questions: []types.Question{
		{Type: types.MultipleChoice, Prompt: "Pick one of the listed items below.", Options: []string{"a", "b"}, Answer: "a", Points: 1},
		{Type: types.Matching, Prompt: "Match each term with its definition carefully.", Options: []string{"1) a", "a) b"}, Answer: "1-a", Points: 1},
		{Type: types.ShortAnswer, Prompt: "", Answer: "x", Points: 1},
	}}
	issues := DefaultRubric().Evaluate(draft, types.GenerationContext{TargetCount: 3})

	structural := issuesForRule(issues, "structure")
	if len(structural) != 3 {
		t.Fatalf("want 3 structure issues (thin options, thin pairs, empty prompt), got %d: %+v", len(structural), structural)
	}
	for _, i := range structural {
		if i.Severity != types.SeverityBlocking {
			t.Fatalf("structure violations must block: %+v", i)
		}
	}
}

func TestRubric_AnswerKey(t *testing.T) {
	draft := &types.Draft{Questions: []types.Question{
		{Type: types.TrueFalse, Prompt: "True or false: the sky is plaid on Tuesdays.", Options: []string{"True", "False"}, Answer: "Maybe", Points: 1},
		{Type: types.ShortAnswer, Prompt: "Describe the water cycle in one sentence.", Answer: "", Points: 1},
	}}
	issues := issuesForRule(DefaultRubric().Evaluate(draft, types.GenerationContext{TargetCount: 2}), "answer_key")
	if len(issues) != 2 {
		t.Fatalf("want 2 answer_key issues, got %d: %+v", len(issues), issues)
	}
}

func TestRubric_NearDuplicateDetection(t *testing.T) {
	draft := &types.Draft{Questions: []types.Question{
		{Type: types.ShortAnswer, Prompt: "Explain how plants convert sunlight into stored chemical energy.", Answer: "a", Points: 1},
		{Type: types.ShortAnswer, Prompt: "Explain how plants convert sunlight into stored chemical energy!", Answer: "b", Points: 1},
		{Type: types.ShortAnswer, Prompt: "List the inputs and outputs of cellular respiration.", Answer: "c", Points: 1},
	}}
	issues := issuesForRule(DefaultRubric().Evaluate(draft, types.GenerationContext{TargetCount: 3}), "duplicate")
	if len(issues) != 1 {
		t.Fatalf("want exactly 1 duplicate issue, got %d: %+v", len(issues), issues)
	}
	if issues[0].QuestionIndex != 1 {
		t.Fatalf("duplicate should be pinned on the later question, got index %d", issues[0].QuestionIndex)
	}
}

func TestRubric_DistributionMismatchIsDraftLevel(t *testing.T) {
	draft := &types.Draft{Questions: []types.Question{
		{Type: types.Essay, Prompt: "Discuss the causes of the industrial revolution in detail.", Answer: "rubric", Points: 5},
	}}
	gctx := types.GenerationContext{
		TargetCount:  1,
		Distribution: map[types.QuestionType]int{types.MultipleChoice: 1},
	}
	issues := issuesForRule(DefaultRubric().Evaluate(draft, gctx), "distribution")
	if len(issues) != 1 {
		t.Fatalf("want 1 distribution issue, got %d", len(issues))
	}
	if !issues[0].DraftLevel() {
		t.Fatal("distribution mismatch should be a draft-level issue")
	}
	if issues[0].Severity != types.SeverityBlocking {
		t.Fatal("distribution mismatch must block")
	}
}

func TestRubric_ReadabilityIsAdvisoryOnly(t *testing.T) {
	draft := &types.Draft{Questions: []types.Question{
		{
			Type:   types.ShortAnswer,
			Prompt: "Notwithstanding extraordinarily heterogeneous thermodynamic considerations, characterize comprehensively the aforementioned phenomenological methodology.",
			Answer: "x", Points: 1,
		},
	}}
	gctx := types.GenerationContext{TargetCount: 1, Style: &types.StyleProfile{Tone: "neutral", ReadingLevel: 4}}
	issues := issuesForRule(DefaultRubric().Evaluate(draft, gctx), "readability")
	if len(issues) != 1 {
		t.Fatalf("want 1 readability issue, got %d", len(issues))
	}
	if issues[0].Severity != types.SeverityAdvisory {
		t.Fatal("readability drift must stay advisory")
	}
}

func TestNormalizePrompt(t *testing.T) {
	got := normalizePrompt("  What IS   photosynthesis?! ")
	want := "what is photosynthesis"
	if got != want {
		t.Fatalf("normalizePrompt = %q, want %q", got, want)
	}
}

func TestJaccard(t *testing.T) {
	a := tokenSet("the quick brown fox")
	b := tokenSet("the quick brown dog")
	got := jaccard(a, b)
	if got <= 0.5 || got >= 0.7 {
		t.Fatalf("jaccard = %f, want 3/5", got)
	}
	if jaccard(a, a) != 1.0 {
		t.Fatal("identical sets must score 1.0")
	}
	if jaccard(a, map[string]struct{}{}) != 0 {
		t.Fatal("empty set must score 0")
	}
}
