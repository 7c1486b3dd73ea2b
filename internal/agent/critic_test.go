package agent

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

func cleanDraft() *types.Draft {
	return &types.Draft{
		ID:      "draft-1",
		Version: 1,
		Round:   1,
		Questions: []types.Question{
			{
				Type:    types.MultipleChoice,
				Prompt:  "Which process converts light energy into chemical energy?",
				Options: []string{"Photosynthesis", "Respiration", "Fermentation", "Osmosis"},
				Answer:  "Photosynthesis",
				Points:  1,
			},
			{
				Type:    types.TrueFalse,
				Prompt:  "True or false: chlorophyll absorbs green light most strongly.",
				Options: []string{"True", "False"},
				Answer:  "False",
				Points:  1,
			},
			{
				Type:   types.ShortAnswer,
				Prompt: "Name the organelle where photosynthesis takes place.",
				Answer: "The chloroplast.",
				Points: 2,
			},
		},
	}
}

func brokenDraft() *types.Draft {
	d := cleanDraft()
	// Answer not in option set.
	d.Questions[0].Answer = "Chemosynthesis"
	// Exact duplicate prompt.
	d.Questions[2].Prompt = d.Questions[1].Prompt
	d.Questions[2].Type = types.TrueFalse
	d.Questions[2].Options = []string{"True", "False"}
	d.Questions[2].Answer = "True"
	return d
}

func TestCritic_ApprovesCleanDraft(t *testing.T) {
	critic := NewCritic(provider.NewSimulated(), testRetryPolicy(), nil, nil)
	report, err := critic.Critique(context.Background(), cleanDraft(), testContext(3))
	require.NoError(t, err)
	assert.Equal(t, types.VerdictApprove, report.Verdict)
	assert.Zero(t, report.BlockingCount())
	assert.Equal(t, 1, report.DraftVersion)
}

func TestCritic_RejectsDraftWithBlockingIssues(t *testing.T) {
	critic := NewCritic(provider.NewSimulated(), testRetryPolicy(), nil, nil)
	report, err := critic.Critique(context.Background(), brokenDraft(), testContext(3))
	require.NoError(t, err)
	assert.Equal(t, types.VerdictReject, report.Verdict)
	assert.Equal(t, 2, report.BlockingCount(), "bad answer key and duplicate prompt")

	rules := map[string]bool{}
	for _, issue := range report.BlockingIssues() {
		rules[issue.Rule] = true
	}
	assert.True(t, rules["answer_key"])
	assert.True(t, rules["duplicate"])
}

func TestCritic_IdempotentUnderSimulatedBackend(t *testing.T) {
	draft := brokenDraft()
	gctx := testContext(3)

	first, err := NewCritic(provider.NewSimulated(), testRetryPolicy(), nil, nil).
		Critique(context.Background(), draft, gctx)
	require.NoError(t, err)
	second, err := NewCritic(provider.NewSimulated(), testRetryPolicy(), nil, nil).
		Critique(context.Background(), draft, gctx)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-critique of the same draft differs (-first +second):\n%s", diff)
	}
}

func TestCritic_ModelIssuesMergedIn(t *testing.T) {
	sim := provider.NewSimulated()
	sim.Enqueue(provider.ShapeCritique,
		`{"issues":[{"rule":"plausibility","severity":"advisory","question_index":1,"message":"phrasing could mislead"}]}`)

	critic := NewCritic(sim, testRetryPolicy(), nil, nil)
	report, err := critic.Critique(context.Background(), cleanDraft(), testContext(3))
	require.NoError(t, err)
	assert.Equal(t, types.VerdictApprove, report.Verdict, "advisory issues never block")

	found := false
	for _, issue := range report.Issues {
		if issue.Rule == "plausibility" {
			found = true
		}
	}
	assert.True(t, found, "model finding should appear in the merged report")
}

func TestCritic_ExhaustsOnRepeatedMalformedCritique(t *testing.T) {
	sim := provider.NewSimulated()
	for i := 0; i < 3; i++ {
		sim.Enqueue(provider.ShapeCritique, "the draft looks fine to me!")
	}
	critic := NewCritic(sim, testRetryPolicy(), nil, nil)
	_, err := critic.Critique(context.Background(), cleanDraft(), testContext(3))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "critique", exhausted.Op)
}

func TestMergeIssues_SeverityNeverDowngrades(t *testing.T) {
	local := []types.Issue{
		{Rule: "readability", Severity: types.SeverityAdvisory, QuestionIndex: 0, Message: "slightly long"},
		{Rule: "structure", Severity: types.SeverityBlocking, QuestionIndex: 1, Message: "too few options"},
	}
	model := []types.Issue{
		// Conflicting signal on the same rule and question: blocking wins.
		{Rule: "readability", Severity: types.SeverityBlocking, QuestionIndex: 0, Message: "far above target level"},
		// Advisory duplicate of an existing blocking finding must not downgrade it.
		{Rule: "structure", Severity: types.SeverityAdvisory, QuestionIndex: 1, Message: "options look thin"},
	}

	merged := mergeIssues(local, model)
	require.Len(t, merged, 2)
	assert.Equal(t, types.SeverityBlocking, merged[0].Severity)
	assert.Equal(t, "far above target level", merged[0].Message)
	assert.Equal(t, types.SeverityBlocking, merged[1].Severity)
	assert.Equal(t, "too few options", merged[1].Message)
}
