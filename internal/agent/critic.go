package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"quizsmith/internal/budget"
	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

// Critic evaluates drafts against the fixed quality rubric. Deterministic
// rubric rules run locally; a provider-backed judgment pass contributes
// additional findings. The two are merged with severity never downgrading.
type Critic struct {
	client provider.Client
	retry  RetryPolicy
	rubric Rubric
	log    *zap.Logger
}

// NewCritic builds a Critic over a (governed) provider client. A nil rubric
// uses DefaultRubric.
func NewCritic(client provider.Client, retry RetryPolicy, rubric Rubric, log *zap.Logger) *Critic {
	if rubric == nil {
		rubric = DefaultRubric()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Critic{client: client, retry: retry, rubric: rubric, log: log.Named("critic")}
}

// Critique evaluates one draft and returns its report. Re-critiquing the
// same draft with the same rubric and a deterministic backend yields an
// identical report.
func (c *Critic) Critique(ctx context.Context, draft *types.Draft, gctx types.GenerationContext) (*types.CritiqueReport, error) {
	local := c.rubric.Evaluate(draft, gctx)

	model, err := c.judge(ctx, draft, gctx)
	if err != nil {
		return nil, err
	}

	merged := mergeIssues(local, model)
	report := types.NewCritiqueReport(draft.Version, merged)
	c.log.Info("draft critiqued",
		zap.Int("version", draft.Version),
		zap.String("verdict", string(report.Verdict)),
		zap.Int("blocking", report.BlockingCount()),
		zap.Int("issues", len(report.Issues)))
	return report, nil
}

// judge is the provider-backed rubric pass, retried like any agent call.
func (c *Critic) judge(ctx context.Context, draft *types.Draft, gctx types.GenerationContext) ([]types.Issue, error) {
	content := buildCriticPrompt(draft, gctx, c.rubric)
	strict := false
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.retry.Wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		prompt := content
		if strict {
			prompt += strictJSONReminder
		}
		resp, err := c.client.Generate(ctx, provider.Request{
			Instructions: criticSystemPrompt,
			Content:      prompt,
			Shape:        provider.ShapeCritique,
			Temperature:  0.2,
		})
		if err != nil {
			var exceeded *budget.ExceededError
			if errors.As(err, &exceeded) {
				return nil, err
			}
			lastErr = err
			if provider.IsMalformed(err) {
				strict = true
			}
			if provider.IsRetryable(err) || provider.IsMalformed(err) {
				c.log.Warn("critique attempt failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return nil, err
		}

		issues, err := parseCritique(c.client.Name(), resp.Text, len(draft.Questions))
		if err != nil {
			lastErr = err
			strict = true
			c.log.Warn("critique response rejected", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return issues, nil
	}

	return nil, &ExhaustedError{Op: "critique", Attempts: c.retry.MaxAttempts, Last: lastErr}
}

// mergeIssues combines local rubric findings with model findings. When the
// same rule flags the same question at conflicting severities, the issue is
// recorded at the higher (blocking) severity; severity never silently
// downgrades. Order is stable: local findings first, then model findings.
func mergeIssues(local, model []types.Issue) []types.Issue {
	type key struct {
		rule  string
		index int
	}
	merged := make([]types.Issue, 0, len(local)+len(model))
	seen := make(map[key]int)

	for _, issue := range append(append([]types.Issue{}, local...), model...) {
		k := key{rule: issue.Rule, index: issue.QuestionIndex}
		if pos, ok := seen[k]; ok {
			if merged[pos].Severity == types.SeverityAdvisory && issue.Severity == types.SeverityBlocking {
				merged[pos].Severity = types.SeverityBlocking
				merged[pos].Message = issue.Message
			}
			continue
		}
		seen[k] = len(merged)
		merged = append(merged, issue)
	}
	return merged
}
