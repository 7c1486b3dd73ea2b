// Package provider defines the model-provider abstraction: one capability
// interface with interchangeable backends. The Simulated backend is
// deterministic and free; the Metered backends (OpenAI, Gemini) perform real
// network calls and incur real cost. Every backend is driven through the
// budget governor, never called directly by the agents.
package provider

import "context"

// ResponseShape names the structured payload a request expects back.
// The Simulated backend keys its fabricated responses on this.
type ResponseShape string

const (
	ShapeQuestions ResponseShape = "questions"
	ShapeCritique  ResponseShape = "critique"
	ShapeStyle     ResponseShape = "style"
)

// Request is a single generation call: instructions (system prompt),
// content (user prompt), and the expected response shape plus
// temperature-like controls.
type Request struct {
	Instructions    string
	Content         string
	Shape           ResponseShape
	Temperature     float64
	MaxOutputTokens int
}

// Response is the structured result of a successful call. Token counts are
// as reported by the backend; the Simulated backend reports zero.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is the single capability interface every backend implements.
type Client interface {
	// Name identifies the backend ("simulated", "openai", "gemini").
	Name() string

	// Generate performs one model call. Failures are reported as the typed
	// errors in this package (TransportError, MalformedResponseError,
	// RateLimitError) so callers can choose differentiated retry policy.
	Generate(ctx context.Context, req Request) (*Response, error)
}
