package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quizsmith/internal/types"
)

// Session pairs an orchestrator with the context it should run.
type Session struct {
	Orchestrator *Orchestrator
	Input        types.GenerationContext
}

// RunAll executes independent sessions concurrently, at most parallel at a
// time (0 means no limit). Each session owns its orchestrator, governor,
// and draft history, so no cross-session locking is involved. Results are
// returned in input order; the first hard error cancels the remaining
// sessions.
func RunAll(ctx context.Context, sessions []Session, parallel int) ([]*Result, error) {
	results := make([]*Result, len(sessions))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, s := range sessions {
		g.Go(func() error {
			result, err := s.Orchestrator.Run(ctx, s.Input)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
