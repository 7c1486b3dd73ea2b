package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"quizsmith/internal/budget"
	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

// InferStyle produces the session's StyleProfile from example material.
// Without examples it returns the neutral default and makes no provider
// call, so sessions that never supply examples never spend on inference.
func InferStyle(ctx context.Context, client provider.Client, retry RetryPolicy, examples []string, log *zap.Logger) (*types.StyleProfile, error) {
	if len(examples) == 0 {
		return types.DefaultStyleProfile(), nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("style")

	content := buildStylePrompt(examples)
	strict := false
	var lastErr error

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := retry.Wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		prompt := content
		if strict {
			prompt += strictJSONReminder
		}
		resp, err := client.Generate(ctx, provider.Request{
			Instructions: styleSystemPrompt,
			Content:      prompt,
			Shape:        provider.ShapeStyle,
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
				log.Warn("style inference attempt failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return nil, err
		}

		profile, err := parseStyle(client.Name(), resp.Text)
		if err != nil {
			lastErr = err
			strict = true
			continue
		}
		return profile, nil
	}

	return nil, &ExhaustedError{Op: "style", Attempts: retry.MaxAttempts, Last: lastErr}
}
