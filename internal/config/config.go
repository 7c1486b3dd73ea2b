package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all quizsmith configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Provider backend configuration
	Provider ProviderConfig `yaml:"provider"`

	// Session budget ceilings
	Budget BudgetConfig `yaml:"budget"`

	// Generation session settings
	Session SessionConfig `yaml:"session"`

	// Retry behavior for provider calls
	Retry RetryConfig `yaml:"retry"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig configures the model backend.
type ProviderConfig struct {
	Name    string `yaml:"name"` // simulated, openai, gemini
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Mode    string `yaml:"mode"` // development, production

	// ConfirmMetered must be set to use a paid backend in development mode.
	ConfirmMetered bool `yaml:"confirm_metered"`

	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// BudgetConfig configures the per-session governor ceilings.
type BudgetConfig struct {
	// MaxCallsPerSession is the hard cap on provider calls in one session.
	MaxCallsPerSession int `yaml:"max_calls_per_session"`

	// MaxCostPerSession is the estimated-dollar ceiling for one session.
	MaxCostPerSession float64 `yaml:"max_cost_per_session"`

	// LedgerCapacity bounds the in-memory audit ledger.
	LedgerCapacity int `yaml:"ledger_capacity"`
}

// SessionConfig configures the generate-critique loop.
type SessionConfig struct {
	// MaxRounds caps how many generate-critique rounds a session may run.
	MaxRounds int `yaml:"max_rounds"`

	// Parallel bounds how many sessions run concurrently when the run
	// command is given multiple inputs.
	Parallel int `yaml:"parallel"`
}

// RetryConfig configures the per-call retry loop.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffBase string `yaml:"backoff_base"`
	BackoffMax  string `yaml:"backoff_max"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration. The default backend is
// the simulated provider so a fresh install can never spend money.
func DefaultConfig() *Config {
	return &Config{
		Name:    "quizsmith",
		Version: "0.3.0",

		Provider: ProviderConfig{
			Name:            "simulated",
			Model:           "gpt-4o-mini",
			Mode:            "development",
			Timeout:         "120s",
			MaxOutputTokens: 4096,
		},

		Budget: BudgetConfig{
			MaxCallsPerSession: 20,
			MaxCostPerSession:  1.00,
			LedgerCapacity:     256,
		},

		Session: SessionConfig{
			MaxRounds: 3,
			Parallel:  4,
		},

		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: "500ms",
			BackoffMax:  "8s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Environment
// wins over the file for credentials and deployment-specific settings.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QUIZSMITH_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("QUIZSMITH_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("QUIZSMITH_MODE"); v != "" {
		c.Provider.Mode = v
	}

	// API keys are never written to the config file.
	switch c.Provider.Name {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
	}
}

// GetProviderTimeout returns the provider timeout as a duration.
func (c *Config) GetProviderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Provider.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetBackoffBase returns the retry backoff base as a duration.
func (c *Config) GetBackoffBase() time.Duration {
	d, err := time.ParseDuration(c.Retry.BackoffBase)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetBackoffMax returns the retry backoff ceiling as a duration.
func (c *Config) GetBackoffMax() time.Duration {
	d, err := time.ParseDuration(c.Retry.BackoffMax)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "", "simulated", "openai", "gemini":
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider.Name)
	}

	switch c.Provider.Mode {
	case "", "development", "production":
	default:
		return fmt.Errorf("unknown mode: %q (want development or production)", c.Provider.Mode)
	}

	if c.Budget.MaxCallsPerSession < 0 {
		return fmt.Errorf("max_calls_per_session must be non-negative")
	}
	if c.Budget.MaxCostPerSession < 0 {
		return fmt.Errorf("max_cost_per_session must be non-negative")
	}
	if c.Session.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1")
	}
	if c.Session.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.Provider.Timeout); c.Provider.Timeout != "" && err != nil {
		return fmt.Errorf("invalid provider timeout: %w", err)
	}

	return nil
}
