// Package orchestrator drives the bounded generate→critique→revise loop.
// One Orchestrator owns one session: its governor, its draft history, and
// its round counter. Sessions are strictly sequential internally; distinct
// sessions share no mutable state and may run concurrently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizsmith/internal/agent"
	"quizsmith/internal/budget"
	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

// State is a phase of the session state machine.
type State string

const (
	StateInit       State = "init"
	StateGenerating State = "generating"
	StateCritiquing State = "critiquing"
	StateRevising   State = "revising"
	StateApproved   State = "approved"
	StateFailed     State = "failed"
)

// Options configures one session.
type Options struct {
	// Client is the raw backend; the orchestrator wraps it in a Governor.
	Client provider.Client
	// MaxCalls and MaxCost bound the session budget.
	MaxCalls int
	MaxCost  float64
	// MaxRounds bounds generate→critique rounds; at least 1.
	MaxRounds int
	// Model feeds the governor's cost rate table.
	Model string
	// Retry is shared by both agents; zero value uses the default policy.
	Retry agent.RetryPolicy
	// Rubric defaults to agent.DefaultRubric.
	Rubric agent.Rubric
	// ExampleMaterial, when present, drives style profile inference at
	// session start (one governed provider call).
	ExampleMaterial []string
	LedgerCapacity  int
	Logger          *zap.Logger
}

// Orchestrator runs one assessment generation session.
type Orchestrator struct {
	id        string
	governor  *budget.Governor
	generator *agent.Generator
	critic    *agent.Critic
	retry     agent.RetryPolicy
	examples  []string
	maxRounds int
	log       *zap.Logger

	state State
}

// New assembles a session. The governor it creates is the only path from
// the agents to the backend.
func New(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("orchestrator: provider client is required")
	}
	if opts.MaxRounds < 1 {
		return nil, fmt.Errorf("orchestrator: max rounds must be at least 1, got %d", opts.MaxRounds)
	}
	if opts.MaxCalls < 0 || opts.MaxCost < 0 {
		return nil, errors.New("orchestrator: budget ceilings must be non-negative")
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = agent.DefaultRetryPolicy()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	log = log.Named("orchestrator").With(zap.String("session", id))

	governor := budget.NewGovernor(opts.Client, budget.Options{
		MaxCalls:       opts.MaxCalls,
		MaxCost:        opts.MaxCost,
		Model:          opts.Model,
		LedgerCapacity: opts.LedgerCapacity,
		Logger:         opts.Logger,
	})
	return &Orchestrator{
		id:        id,
		governor:  governor,
		generator: agent.NewGenerator(governor, retry, opts.Logger),
		critic:    agent.NewCritic(governor, retry, opts.Rubric, opts.Logger),
		retry:     retry,
		examples:  opts.ExampleMaterial,
		maxRounds: opts.MaxRounds,
		log:       log,
		state:     StateInit,
	}, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// State returns the current phase, for observation only.
func (o *Orchestrator) State() State { return o.state }

// Budget returns the current budget counters.
func (o *Orchestrator) Budget() budget.SessionBudget { return o.governor.Snapshot() }

// Run executes the session to a terminal state. It returns a Result for
// every named termination (approved or failed-*); an error return means the
// session could not run at all (invalid input) or was cancelled, in which
// case no partial result is exposed.
func (o *Orchestrator) Run(ctx context.Context, gctx types.GenerationContext) (*Result, error) {
	started := time.Now()

	// INIT: input validation precedes any provider traffic.
	if err := gctx.Validate(); err != nil {
		return nil, err
	}

	if gctx.Style == nil {
		profile, err := agent.InferStyle(ctx, o.governor, o.retry, o.examples, o.log)
		if err != nil {
			if result, ok := o.terminalForError(err, nil, nil, 0, started); ok {
				return result, nil
			}
			return nil, err
		}
		gctx.Style = profile
	}

	var (
		best      *types.Draft
		critiques []*types.CritiqueReport
	)
	round, version := 1, 1

	for {
		if err := ctx.Err(); err != nil {
			// Abandoned at a round boundary: nothing partial escapes.
			return nil, err
		}

		o.transition(StateGenerating, round)
		draft, err := o.generator.Generate(ctx, gctx, version, round)
		if err != nil {
			if result, ok := o.terminalForError(err, best, critiques, round, started); ok {
				return result, nil
			}
			return nil, err
		}
		best = draft

		o.transition(StateCritiquing, round)
		report, err := o.critic.Critique(ctx, draft, gctx)
		if err != nil {
			if result, ok := o.terminalForError(err, best, critiques, round, started); ok {
				return result, nil
			}
			return nil, err
		}
		critiques = append(critiques, report)

		if report.Verdict == types.VerdictApprove {
			o.state = StateApproved
			o.log.Info("session approved",
				zap.Int("rounds", round), zap.Int("version", draft.Version))
			return o.result(DispositionApproved, "", best, nil, critiques, round, started), nil
		}

		if round >= o.maxRounds {
			o.state = StateFailed
			unresolved := report.BlockingIssues()
			o.log.Warn("session hit round ceiling",
				zap.Int("rounds", round), zap.Int("unresolved", len(unresolved)))
			return o.result(DispositionFailedMaxRound,
				fmt.Sprintf("draft still has %d blocking issues after %d rounds", len(unresolved), round),
				best, unresolved, critiques, round, started), nil
		}

		o.transition(StateRevising, round)
		gctx = gctx.WithFeedback(report)
		round++
		version++
	}
}

// terminalForError maps agent failures onto named terminal dispositions.
// A refused budget check halts immediately in failed_budget; exhausted
// retries (parse or transient) end in failed_parse. Other errors (context
// cancellation, invalid input) are not terminal results and propagate.
func (o *Orchestrator) terminalForError(err error, best *types.Draft, critiques []*types.CritiqueReport, round int, started time.Time) (*Result, bool) {
	var exceeded *budget.ExceededError
	if errors.As(err, &exceeded) {
		o.state = StateFailed
		o.log.Warn("session halted on budget", zap.String("reason", exceeded.Reason))
		return o.result(DispositionFailedBudget, exceeded.Error(), best, nil, critiques, round, started), true
	}
	var exhausted *agent.ExhaustedError
	if errors.As(err, &exhausted) {
		o.state = StateFailed
		o.log.Warn("session halted on exhausted attempts", zap.String("op", exhausted.Op), zap.Error(exhausted.Last))
		return o.result(DispositionFailedParse, exhausted.Error(), best, nil, critiques, round, started), true
	}
	return nil, false
}

func (o *Orchestrator) result(d Disposition, reason string, draft *types.Draft, unresolved []types.Issue, critiques []*types.CritiqueReport, rounds int, started time.Time) *Result {
	return &Result{
		SessionID:   o.id,
		Disposition: d,
		Reason:      reason,
		Draft:       draft,
		Unresolved:  unresolved,
		Critiques:   critiques,
		Budget:      o.governor.Snapshot(),
		Ledger:      o.governor.Ledger(),
		Rounds:      rounds,
		Duration:    time.Since(started),
	}
}

func (o *Orchestrator) transition(next State, round int) {
	o.state = next
	o.log.Debug("state transition", zap.String("state", string(next)), zap.Int("round", round))
}
