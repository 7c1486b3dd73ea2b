package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quizsmith/internal/agent"
	"quizsmith/internal/types"
)

var (
	estimateCount        int
	estimateDistribution []string
	estimateJSON         bool
)

// estimateCmd projects session cost without dispatching any provider call.
var estimateCmd = &cobra.Command{
	Use:   "estimate [source-file...]",
	Short: "Project the cost of a session without making any provider call",
	Long: `Prices the prompts a session over the given source material would
send, using the configured model's per-token rates and the output ceiling.
Nothing is dispatched and nothing is spent.

The worst case assumes every round runs to the configured maximum.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().IntVar(&estimateCount, "count", 10, "Target question count per draft")
	estimateCmd.Flags().StringSliceVar(&estimateDistribution, "distribution", nil, "Required type counts, e.g. multiple_choice=6 (repeatable)")
	estimateCmd.Flags().BoolVar(&estimateJSON, "json", false, "Emit the estimate as JSON")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	distribution, err := parseDistribution(estimateDistribution)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var total float64
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read source %s: %w", path, err)
		}
		gctx := types.GenerationContext{
			Segments:     splitSegments(string(data)),
			TargetCount:  estimateCount,
			Distribution: distribution,
		}
		est := agent.EstimateSession(gctx, cfg.Provider.Model,
			cfg.Provider.MaxOutputTokens, cfg.Session.MaxRounds)
		total += est.WorstCase

		if estimateJSON {
			payload, err := json.MarshalIndent(map[string]any{
				"source":   path,
				"model":    cfg.Provider.Model,
				"estimate": est,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(payload))
			continue
		}
		fmt.Fprintf(out, "%s: ~%d prompt tokens, $%.4f per round, $%.4f worst case over %d rounds (%s)\n",
			path, est.PromptTokens, est.PerRound, est.WorstCase,
			cfg.Session.MaxRounds, cfg.Provider.Model)
	}

	if !estimateJSON && len(args) > 1 {
		fmt.Fprintf(out, "total worst case: $%.4f\n", total)
	}
	if total > cfg.Budget.MaxCostPerSession && cfg.Provider.Name != "simulated" {
		fmt.Fprintf(out, "warning: worst case exceeds max_cost_per_session ($%.4f)\n",
			cfg.Budget.MaxCostPerSession)
	}
	return nil
}
