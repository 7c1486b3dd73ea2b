// quizsmith generates quiz drafts from source material through a bounded
// generate-critique-revise loop. The default backend is simulated and free;
// metered backends must be selected and confirmed explicitly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizsmith/internal/agent"
	"quizsmith/internal/config"
	"quizsmith/internal/logging"
)

// retryPolicy maps the config retry section onto the agents' policy.
func retryPolicy() agent.RetryPolicy {
	return agent.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.GetBackoffBase(),
		BackoffMax:  cfg.GetBackoffMax(),
	}
}

var (
	// Global flags
	cfgFile        string
	verbose        bool
	providerFlag   string
	modelFlag      string
	confirmMetered bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quizsmith",
	Short: "quizsmith - budget-governed quiz generation",
	Long: `quizsmith turns source material into a quiz draft through a bounded
generate-critique-revise loop.

A generator agent drafts questions, a critic agent reviews them against a
quality rubric, and blocking issues feed a revision round. Every provider
call passes through a budget governor that refuses work past the session's
call and cost ceilings, so a session can never overspend.

The default backend is simulated: deterministic, offline, and free.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Flags win over file and environment.
		if providerFlag != "" {
			cfg.Provider.Name = providerFlag
		}
		if modelFlag != "" {
			cfg.Provider.Model = modelFlag
		}
		if confirmMetered {
			cfg.Provider.ConfirmMetered = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the build identity.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quizsmith version",
	Run: func(cmd *cobra.Command, args []string) {
		d := config.DefaultConfig()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", d.Name, d.Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "quizsmith.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Backend provider: simulated, openai, gemini")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model name for metered backends")
	rootCmd.PersistentFlags().BoolVar(&confirmMetered, "confirm-metered", false, "Allow a paid backend in development mode")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
