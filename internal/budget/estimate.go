package budget

import "quizsmith/internal/provider"

// Cost estimation heuristic.
//
// Tokens are approximated as ceil(len(text)/4): roughly one token per four
// bytes of English prose. Error bounds: this over-counts CJK and other
// multi-byte scripts (where a token often covers one rune but several bytes)
// and under-counts whitespace- and code-heavy text, in the worst case by
// about a factor of two either way. Dollar figures use published per-million
// list prices; metered providers may bill cached or batched traffic
// differently. The estimate is therefore a ceiling-side approximation, which
// is the safe direction for budget refusal.
//
// The output side of a pre-call estimate uses the request's MaxOutputTokens
// ceiling, so a check that passes can never be exceeded by the call it
// admits.

// rate is dollars per one million tokens.
type rate struct {
	input  float64
	output float64
}

var modelRates = map[string]rate{
	"gpt-4o":           {input: 2.50, output: 10.00},
	"gpt-4o-mini":      {input: 0.15, output: 0.60},
	"gemini-2.0-flash": {input: 0.10, output: 0.40},
	"gemini-1.5-pro":   {input: 1.25, output: 5.00},
}

// defaultRate is applied to unknown models; deliberately on the high side.
var defaultRate = rate{input: 3.00, output: 15.00}

const defaultOutputCeiling = 4096

// Estimator maps request/response sizes to estimated dollar cost.
type Estimator struct {
	model string
}

// NewEstimator returns an estimator for the given model name. An empty model
// uses the conservative default rate.
func NewEstimator(model string) *Estimator {
	return &Estimator{model: model}
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Request estimates the cost of dispatching req: prompt tokens at the input
// rate plus the output-token ceiling at the output rate.
func (e *Estimator) Request(req provider.Request) float64 {
	in := EstimateTokens(req.Instructions) + EstimateTokens(req.Content)
	out := req.MaxOutputTokens
	if out <= 0 {
		out = defaultOutputCeiling
	}
	return e.Cost(in, out)
}

// Cost converts token counts to dollars.
func (e *Estimator) Cost(inputTokens, outputTokens int) float64 {
	r, ok := modelRates[e.model]
	if !ok {
		r = defaultRate
	}
	return float64(inputTokens)*r.input/1e6 + float64(outputTokens)*r.output/1e6
}
