package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizsmith/internal/orchestrator"
	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

var (
	runCount        int
	runDistribution []string
	runStyleFiles   []string
	runParallel     int
	runJSON         bool
)

// runCmd generates a quiz draft for each source file.
var runCmd = &cobra.Command{
	Use:   "run [source-file...]",
	Short: "Generate a quiz draft from source material",
	Long: `Runs one generation session per source file. Each session drafts
questions, has them critiqued against the quality rubric, and revises until
the critic approves, the round limit is hit, or the budget governor refuses
further calls.

Example:
  quizsmith run chapter3.txt --count 10 --distribution multiple_choice=6 --distribution short_answer=4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	runCmd.Flags().IntVar(&runCount, "count", 10, "Target question count per draft")
	runCmd.Flags().StringSliceVar(&runDistribution, "distribution", nil, "Required type counts, e.g. multiple_choice=6 (repeatable)")
	runCmd.Flags().StringSliceVar(&runStyleFiles, "style-example", nil, "Example quiz file to infer style from (repeatable)")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "Concurrent sessions (default from config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit full results as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	distribution, err := parseDistribution(runDistribution)
	if err != nil {
		return err
	}

	examples, err := readFiles(runStyleFiles)
	if err != nil {
		return err
	}

	client, err := provider.New(ctx, provider.Config{
		Provider:        cfg.Provider.Name,
		Model:           cfg.Provider.Model,
		APIKey:          cfg.Provider.APIKey,
		BaseURL:         cfg.Provider.BaseURL,
		Mode:            provider.Mode(cfg.Provider.Mode),
		ConfirmMetered:  cfg.Provider.ConfirmMetered,
		Timeout:         cfg.GetProviderTimeout(),
		MaxOutputTokens: cfg.Provider.MaxOutputTokens,
	})
	if err != nil {
		return err
	}
	logger.Info("Provider selected", zap.String("backend", client.Name()))

	sessions := make([]orchestrator.Session, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read source %s: %w", path, err)
		}
		o, err := orchestrator.New(orchestrator.Options{
			Client:          client,
			MaxCalls:        cfg.Budget.MaxCallsPerSession,
			MaxCost:         cfg.Budget.MaxCostPerSession,
			MaxRounds:       cfg.Session.MaxRounds,
			Model:           cfg.Provider.Model,
			Retry:           retryPolicy(),
			ExampleMaterial: examples,
			LedgerCapacity:  cfg.Budget.LedgerCapacity,
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		sessions = append(sessions, orchestrator.Session{
			Orchestrator: o,
			Input: types.GenerationContext{
				Segments:     splitSegments(string(data)),
				TargetCount:  runCount,
				Distribution: distribution,
			},
		})
	}

	parallel := runParallel
	if parallel <= 0 {
		parallel = cfg.Session.Parallel
	}
	results, err := orchestrator.RunAll(ctx, sessions, parallel)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, result := range results {
		if runJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			printResult(out, args[i], result)
		}
		if !result.Approved() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions did not reach approval", failed, len(results))
	}
	return nil
}

func printResult(out io.Writer, source string, r *orchestrator.Result) {
	fmt.Fprintf(out, "%s: %s (session %s, %d rounds, %d calls, $%.4f)\n",
		source, r.Disposition, r.SessionID, r.Rounds,
		r.Budget.ConsumedCalls, r.Budget.ConsumedCost)
	if r.Reason != "" {
		fmt.Fprintf(out, "  reason: %s\n", r.Reason)
	}
	for _, issue := range r.Unresolved {
		if issue.QuestionIndex == types.DraftLevelIssue {
			fmt.Fprintf(out, "  unresolved [%s] %s: %s\n", issue.Severity, issue.Rule, issue.Message)
			continue
		}
		fmt.Fprintf(out, "  unresolved [%s] question %d (%s): %s\n",
			issue.Severity, issue.QuestionIndex+1, issue.Rule, issue.Message)
	}
	if r.Draft == nil {
		return
	}
	fmt.Fprintf(out, "  draft v%d, %d questions:\n", r.Draft.Version, len(r.Draft.Questions))
	for i, q := range r.Draft.Questions {
		fmt.Fprintf(out, "  %2d. [%s] %s\n", i+1, q.Type, q.Prompt)
		for _, opt := range q.Options {
			fmt.Fprintf(out, "        - %s\n", opt)
		}
		fmt.Fprintf(out, "        answer: %s\n", q.Answer)
	}
}

// parseDistribution parses repeated type=count flags.
func parseDistribution(specs []string) (map[types.QuestionType]int, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	dist := make(map[types.QuestionType]int, len(specs))
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid distribution %q (want type=count)", spec)
		}
		qt := types.QuestionType(strings.TrimSpace(name))
		if !qt.Valid() {
			return nil, fmt.Errorf("unknown question type %q", name)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid count in distribution %q", spec)
		}
		dist[qt] = n
	}
	return dist, nil
}

// splitSegments breaks source text into paragraph segments.
func splitSegments(text string) []string {
	var segments []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			segments = append(segments, block)
		}
	}
	return segments
}

func readFiles(paths []string) ([]string, error) {
	var contents []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		contents = append(contents, string(data))
	}
	return contents, nil
}
