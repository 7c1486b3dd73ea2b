package budget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizsmith/internal/provider"
)

// meteredStub is a fake metered backend: no ZeroCost method, canned reply.
type meteredStub struct {
	calls int
	err   error
}

func (m *meteredStub) Name() string { return "metered-test" }

func (m *meteredStub) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &provider.Response{Text: "{}", Model: "stub", InputTokens: 100, OutputTokens: 50}, nil
}

func TestGovernor_RefusesAtCallCeiling(t *testing.T) {
	stub := &meteredStub{}
	gov := NewGovernor(stub, Options{MaxCalls: 2, MaxCost: 100})
	ctx := context.Background()
	req := provider.Request{Shape: provider.ShapeQuestions, Content: "hello", MaxOutputTokens: 10}

	_, err := gov.Generate(ctx, req)
	require.NoError(t, err)
	_, err = gov.Generate(ctx, req)
	require.NoError(t, err)

	_, err = gov.Generate(ctx, req)
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "calls", exceeded.Reason)
	assert.Equal(t, 2, stub.calls, "refused call must never be dispatched")

	snap := gov.Snapshot()
	assert.Equal(t, 2, snap.ConsumedCalls)
	assert.LessOrEqual(t, snap.ConsumedCalls, snap.MaxCalls)
}

func TestGovernor_RefusesAtCostCeiling(t *testing.T) {
	stub := &meteredStub{}
	// Unknown model uses the conservative default rate; a single request
	// with a large output ceiling costs well over a cent.
	gov := NewGovernor(stub, Options{MaxCalls: 100, MaxCost: 0.00001})
	req := provider.Request{Shape: provider.ShapeQuestions, Content: "content", MaxOutputTokens: 4096}

	_, err := gov.Generate(context.Background(), req)
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "cost", exceeded.Reason)
	assert.Zero(t, stub.calls)

	entries := gov.Ledger()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeRefused, entries[0].Outcome)
}

func TestGovernor_SimulatedIsAlwaysFree(t *testing.T) {
	gov := NewGovernor(provider.NewSimulated(), Options{MaxCalls: 1000, MaxCost: 0})
	req := provider.Request{Shape: provider.ShapeCritique, Content: "Target question count: 3"}

	for i := 0; i < 50; i++ {
		_, err := gov.Generate(context.Background(), req)
		require.NoError(t, err)
	}
	snap := gov.Snapshot()
	assert.Equal(t, 50, snap.ConsumedCalls)
	assert.Zero(t, snap.ConsumedCost, "simulated backend must never increment consumed cost")
}

func TestGovernor_FailedCallStillConsumes(t *testing.T) {
	stub := &meteredStub{err: &provider.TransportError{Backend: "metered-test", Err: errors.New("timeout")}}
	gov := NewGovernor(stub, Options{MaxCalls: 10, MaxCost: 100})

	_, err := gov.Generate(context.Background(), provider.Request{Shape: provider.ShapeQuestions, Content: "x", MaxOutputTokens: 8})
	require.Error(t, err)

	snap := gov.Snapshot()
	assert.Equal(t, 1, snap.ConsumedCalls, "a failed attempt still consumes a tracked call")
	assert.Greater(t, snap.ConsumedCost, 0.0)

	entries := gov.Ledger()
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeFailure, entries[0].Outcome)
	assert.Contains(t, entries[0].Detail, "timeout")
}

func TestGovernor_CountersNeverExceedCeilings(t *testing.T) {
	stub := &meteredStub{}
	gov := NewGovernor(stub, Options{MaxCalls: 5, MaxCost: 0.05, Model: "gpt-4o-mini"})
	req := provider.Request{Shape: provider.ShapeQuestions, Content: "abcd", MaxOutputTokens: 64}

	for i := 0; i < 20; i++ {
		_, _ = gov.Generate(context.Background(), req)
		snap := gov.Snapshot()
		assert.LessOrEqual(t, snap.ConsumedCalls, snap.MaxCalls)
		assert.LessOrEqual(t, snap.ConsumedCost, snap.MaxCost)
	}
}

func TestLedger_RingEviction(t *testing.T) {
	stub := &meteredStub{}
	gov := NewGovernor(stub, Options{MaxCalls: 100, MaxCost: 1000, LedgerCapacity: 4})
	req := provider.Request{Shape: provider.ShapeQuestions, Content: "x", MaxOutputTokens: 1}

	for i := 0; i < 10; i++ {
		_, err := gov.Generate(context.Background(), req)
		require.NoError(t, err)
	}
	entries := gov.Ledger()
	assert.Len(t, entries, 4, "ledger must be bounded by its capacity")
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Time.Before(entries[i-1].Time), "entries must be oldest first")
	}
}

func TestEstimator(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))

	e := NewEstimator("gpt-4o-mini")
	// 1M input tokens at $0.15 + 1M output tokens at $0.60.
	assert.InDelta(t, 0.75, e.Cost(1_000_000, 1_000_000), 1e-9)

	unknown := NewEstimator("some-new-model")
	assert.Greater(t, unknown.Cost(1000, 1000), e.Cost(1000, 1000),
		"unknown models should be priced conservatively")
}
