package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizsmith/internal/budget"
	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

// Generator produces candidate drafts from a generation context. All provider
// traffic goes through the governed client it was constructed with.
type Generator struct {
	client provider.Client
	retry  RetryPolicy
	log    *zap.Logger
}

// NewGenerator builds a Generator over a (governed) provider client.
func NewGenerator(client provider.Client, retry RetryPolicy, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{client: client, retry: retry, log: log.Named("generator")}
}

// Generate produces a new Draft with the given version and round numbers.
// Transient provider failures are retried with backoff; malformed responses
// are retried with a stricter follow-up instruction. A refused budget check
// is fatal and never retried. When attempts run out the caller receives an
// *ExhaustedError.
func (g *Generator) Generate(ctx context.Context, gctx types.GenerationContext, version, round int) (*types.Draft, error) {
	if err := gctx.Validate(); err != nil {
		return nil, err
	}

	content := buildGeneratorPrompt(gctx)
	strict := false
	var lastErr error

	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := g.retry.Wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		prompt := content
		if strict {
			prompt += strictJSONReminder
		}
		resp, err := g.client.Generate(ctx, provider.Request{
			Instructions: generatorSystemPrompt,
			Content:      prompt,
			Shape:        provider.ShapeQuestions,
			Temperature:  0.7,
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
				g.log.Warn("generation attempt failed",
					zap.Int("attempt", attempt), zap.Int("round", round), zap.Error(err))
				continue
			}
			return nil, err
		}

		questions, err := parseDraft(g.client.Name(), resp.Text, gctx)
		if err != nil {
			lastErr = err
			strict = true
			g.log.Warn("generation response rejected",
				zap.Int("attempt", attempt), zap.Int("round", round), zap.Error(err))
			continue
		}

		draft := &types.Draft{
			ID:        uuid.NewString(),
			Version:   version,
			Round:     round,
			Questions: questions,
		}
		g.log.Info("draft generated",
			zap.Int("version", version), zap.Int("round", round),
			zap.Int("questions", len(questions)))
		return draft, nil
	}

	return nil, &ExhaustedError{Op: "generate", Attempts: g.retry.MaxAttempts, Last: lastErr}
}
