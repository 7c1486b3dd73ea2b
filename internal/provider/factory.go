package provider

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Mode distinguishes development from production sessions. In development
// mode a metered backend is refused unless explicitly confirmed, so cost can
// never be incurred by accident.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Config selects and configures a backend for one session. The backend is
// chosen once at session start and never swapped mid-session.
type Config struct {
	// Provider names the backend: "simulated" (default), "openai", "gemini".
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Mode     Mode
	// ConfirmMetered must be true to construct a metered backend in
	// development mode.
	ConfirmMetered  bool
	Timeout         time.Duration
	MaxOutputTokens int
}

// New constructs the backend named by cfg.Provider. The Simulated backend is
// the default; metered backends require explicit selection, and in
// development mode additionally require ConfirmMetered.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "simulated":
		return NewSimulated(), nil
	case "openai", "gemini":
		// fall through to metered construction below
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeDevelopment
	}
	if cfg.Mode == ModeDevelopment && !cfg.ConfirmMetered {
		return nil, fmt.Errorf("provider %q is metered; confirm metered usage to use it in development mode", cfg.Provider)
	}

	switch cfg.Provider {
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:          key,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Timeout:         cfg.Timeout,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	default: // gemini
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:          key,
			Model:           cfg.Model,
			Timeout:         cfg.Timeout,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	}
}
