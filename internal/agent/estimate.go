package agent

import (
	"quizsmith/internal/budget"
	"quizsmith/internal/types"
)

// SessionEstimate is a pre-flight cost projection for a session. No provider
// call is made to produce it.
type SessionEstimate struct {
	// PerRound is the estimated cost of one generate plus one critique call.
	PerRound float64 `json:"per_round"`
	// WorstCase assumes every round runs and every attempt is billed once.
	WorstCase float64 `json:"worst_case"`
	// PromptTokens is the estimated input size of the round-one generator call.
	PromptTokens int `json:"prompt_tokens"`
}

// EstimateSession projects what a session over gctx would cost on the given
// model, using the same prompts the agents would send. The critique input is
// approximated by the generator's output ceiling, since the draft being
// reviewed cannot be larger than what the model was allowed to emit.
func EstimateSession(gctx types.GenerationContext, model string, maxOutputTokens, maxRounds int) SessionEstimate {
	if maxOutputTokens <= 0 {
		maxOutputTokens = 4096
	}
	if maxRounds < 1 {
		maxRounds = 1
	}
	est := budget.NewEstimator(model)

	genIn := budget.EstimateTokens(generatorSystemPrompt) + budget.EstimateTokens(buildGeneratorPrompt(gctx))
	genCost := est.Cost(genIn, maxOutputTokens)

	criticIn := budget.EstimateTokens(criticSystemPrompt) + maxOutputTokens
	criticCost := est.Cost(criticIn, maxOutputTokens)

	perRound := genCost + criticCost
	return SessionEstimate{
		PerRound:     perRound,
		WorstCase:    perRound * float64(maxRounds),
		PromptTokens: genIn,
	}
}
