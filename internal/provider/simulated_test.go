package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_DeterministicByRequest(t *testing.T) {
	ctx := context.Background()
	req := Request{
		Instructions: "generate questions",
		Content:      "Target question count: 4\n\nThe mitochondria is the powerhouse of the cell.",
		Shape:        ShapeQuestions,
	}

	a, err := NewSimulated().Generate(ctx, req)
	require.NoError(t, err)
	b, err := NewSimulated().Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text, "same request must fabricate the same response")

	other := req
	other.Content = "Target question count: 4\n\nA different passage entirely."
	c, err := NewSimulated().Generate(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Text, c.Text, "different content should fabricate a different draft")
}

func TestSimulated_HonorsTargetCountAndDistribution(t *testing.T) {
	req := Request{
		Content: "Target question count: 6\nRequested distribution:\n- multiple_choice: 3\n- true_false: 2\n- essay: 1\n\nsource text",
		Shape:   ShapeQuestions,
	}
	resp, err := NewSimulated().Generate(context.Background(), req)
	require.NoError(t, err)

	var payload struct {
		Questions []struct {
			Type    string   `json:"type"`
			Prompt  string   `json:"prompt"`
			Options []string `json:"options"`
			Answer  string   `json:"answer"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &payload))
	require.Len(t, payload.Questions, 6)

	counts := map[string]int{}
	for _, q := range payload.Questions {
		counts[q.Type]++
		assert.NotEmpty(t, q.Prompt)
		assert.NotEmpty(t, q.Answer)
	}
	assert.Equal(t, 3, counts["multiple_choice"])
	assert.Equal(t, 2, counts["true_false"])
	assert.Equal(t, 1, counts["essay"])

	// Multiple-choice answers must be members of their option set.
	for _, q := range payload.Questions {
		if q.Type == "multiple_choice" {
			assert.Contains(t, q.Options, q.Answer)
		}
	}
}

func TestSimulated_ScriptedQueue(t *testing.T) {
	sim := NewSimulated()
	sim.Enqueue(ShapeCritique, `{"issues":[{"rule":"x","severity":"blocking","question_index":0,"message":"bad"}]}`)
	sim.EnqueueError(ShapeCritique, &TransportError{Backend: "simulated", Err: errors.New("boom")})

	resp, err := sim.Generate(context.Background(), Request{Shape: ShapeCritique})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"blocking"`)

	_, err = sim.Generate(context.Background(), Request{Shape: ShapeCritique})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	// Queue drained: default approve critique.
	resp, err = sim.Generate(context.Background(), Request{Shape: ShapeCritique})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"issues":[]`)
}

func TestSimulated_ZeroTokens(t *testing.T) {
	resp, err := NewSimulated().Generate(context.Background(), Request{Shape: ShapeStyle})
	require.NoError(t, err)
	assert.Zero(t, resp.InputTokens)
	assert.Zero(t, resp.OutputTokens)
}

func TestFactory_MeteredNeverSilentDefault(t *testing.T) {
	ctx := context.Background()

	client, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, "simulated", client.Name())

	_, err = New(ctx, Config{Provider: "openai", Mode: ModeDevelopment})
	require.Error(t, err, "metered backend must require explicit confirmation in development mode")

	_, err = New(ctx, Config{Provider: "warp-drive"})
	require.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsRetryable(&TransportError{Backend: "openai", Err: errors.New("eof")}))
	assert.True(t, IsRetryable(&RateLimitError{Backend: "openai"}))
	assert.False(t, IsRetryable(&MalformedResponseError{Backend: "openai", Reason: "not json"}))
	assert.True(t, IsMalformed(&MalformedResponseError{Backend: "openai", Reason: "not json"}))
	assert.False(t, IsMalformed(errors.New("plain")))
}
