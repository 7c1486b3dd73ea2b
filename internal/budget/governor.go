// Package budget enforces the per-session spending ceiling. The Governor is
// the single choke point every provider call passes through: it refuses calls
// that would exceed the call or cost ceiling, tracks consumed totals, and
// keeps a bounded audit ledger of every attempt.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizsmith/internal/provider"
)

// SessionBudget is a point-in-time snapshot of the session's ceilings and
// consumed totals. Counters are monotonically non-decreasing within a
// session and never reset.
type SessionBudget struct {
	MaxCalls      int     `json:"max_calls"`
	MaxCost       float64 `json:"max_cost"`
	ConsumedCalls int     `json:"consumed_calls"`
	ConsumedCost  float64 `json:"consumed_cost"`
}

// ExceededError reports a refused call. The underlying provider call was
// never dispatched.
type ExceededError struct {
	Reason   string // "calls" or "cost"
	Consumed float64
	Limit    float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("session budget exceeded (%s): consumed %.4f of %.4f", e.Reason, e.Consumed, e.Limit)
}

// zeroCoster is implemented by backends whose calls are always free
// (the Simulated backend).
type zeroCoster interface {
	ZeroCost() bool
}

// Options configures a Governor.
type Options struct {
	MaxCalls       int
	MaxCost        float64
	Model          string // for the cost rate table
	LedgerCapacity int
	Logger         *zap.Logger
}

// Governor wraps a provider client and enforces the session budget. It
// implements provider.Client so agents cannot reach the backend around it.
// Governor state is the sole mutable shared resource in the pipeline; one
// instance is scoped to one session and never shared across sessions.
type Governor struct {
	client    provider.Client
	estimator *Estimator
	zeroCost  bool
	log       *zap.Logger

	mu            sync.Mutex
	maxCalls      int
	maxCost       float64
	consumedCalls int
	consumedCost  float64
	entries       *ledger
}

// NewGovernor wraps client with budget enforcement.
func NewGovernor(client provider.Client, opts Options) *Governor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	zero := false
	if zc, ok := client.(zeroCoster); ok && zc.ZeroCost() {
		zero = true
	}
	return &Governor{
		client:    client,
		estimator: NewEstimator(opts.Model),
		zeroCost:  zero,
		log:       log.Named("governor"),
		maxCalls:  opts.MaxCalls,
		maxCost:   opts.MaxCost,
		entries:   newLedger(opts.LedgerCapacity),
	}
}

// Name implements provider.Client.
func (g *Governor) Name() string { return g.client.Name() }

// Generate implements provider.Client. Before dispatch it checks both
// ceilings; a failed check records a refused ledger entry and returns
// *ExceededError without dispatching. A dispatched call, successful or not,
// consumes one call and the estimated cost.
func (g *Governor) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	estimate := 0.0
	if !g.zeroCost {
		estimate = g.estimator.Request(req)
	}
	op := string(req.Shape)

	g.mu.Lock()
	if g.consumedCalls >= g.maxCalls {
		g.refuseLocked(op, estimate, "call ceiling reached")
		consumed, limit := g.consumedCalls, g.maxCalls
		g.mu.Unlock()
		g.log.Warn("call refused", zap.String("operation", op), zap.String("reason", "calls"))
		return nil, &ExceededError{Reason: "calls", Consumed: float64(consumed), Limit: float64(limit)}
	}
	if g.consumedCost+estimate > g.maxCost {
		g.refuseLocked(op, estimate, "cost ceiling would be exceeded")
		consumed, limit := g.consumedCost, g.maxCost
		g.mu.Unlock()
		g.log.Warn("call refused", zap.String("operation", op), zap.String("reason", "cost"),
			zap.Float64("estimate", estimate))
		return nil, &ExceededError{Reason: "cost", Consumed: consumed, Limit: limit}
	}
	// Reserve before dispatch so the ceiling holds by construction even if
	// the call fails mid-flight.
	g.consumedCalls++
	g.consumedCost += estimate
	g.mu.Unlock()

	resp, err := g.client.Generate(ctx, req)

	entry := LedgerEntry{
		Time:          time.Now(),
		Operation:     op,
		Backend:       g.client.Name(),
		InputTokens:   EstimateTokens(req.Instructions) + EstimateTokens(req.Content),
		EstimatedCost: estimate,
		Outcome:       OutcomeSuccess,
	}
	if err != nil {
		entry.Outcome = OutcomeFailure
		entry.Detail = err.Error()
	} else {
		entry.OutputTokens = resp.OutputTokens
		if resp.InputTokens > 0 {
			entry.InputTokens = resp.InputTokens
		}
	}

	g.mu.Lock()
	g.entries.append(entry)
	g.mu.Unlock()

	g.log.Debug("call accounted",
		zap.String("operation", op),
		zap.String("outcome", string(entry.Outcome)),
		zap.Float64("estimate", estimate))
	return resp, err
}

func (g *Governor) refuseLocked(op string, estimate float64, detail string) {
	g.entries.append(LedgerEntry{
		Time:          time.Now(),
		Operation:     op,
		Backend:       g.client.Name(),
		EstimatedCost: estimate,
		Outcome:       OutcomeRefused,
		Detail:        detail,
	})
}

// Snapshot returns the current budget counters.
func (g *Governor) Snapshot() SessionBudget {
	g.mu.Lock()
	defer g.mu.Unlock()
	return SessionBudget{
		MaxCalls:      g.maxCalls,
		MaxCost:       g.maxCost,
		ConsumedCalls: g.consumedCalls,
		ConsumedCost:  g.consumedCost,
	}
}

// Ledger returns the retained audit entries, oldest first. The slice is a
// copy; callers may not mutate governor state through it.
func (g *Governor) Ledger() []LedgerEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entries.snapshot()
}
