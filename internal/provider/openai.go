package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig holds configuration for the OpenAI metered backend.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:          apiKey,
		Model:           "gpt-4o-mini",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 4096,
	}
}

// OpenAIClient implements Client against the OpenAI chat completions API.
// Every call incurs real cost; it is never the silent default backend.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	maxOut  int
}

// NewOpenAIClient creates a metered OpenAI backend.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIConfig("").Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOpenAIConfig("").Timeout
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultOpenAIConfig("").MaxOutputTokens
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		maxOut:  cfg.MaxOutputTokens,
	}, nil
}

// Name implements Client.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate implements Client.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	// Apply the per-call timeout if the context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxOut := req.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = c.maxOut
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(req.Content),
		},
		MaxCompletionTokens: openai.Int(int64(maxOut)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Backend: c.Name(), Reason: "empty choices"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, &MalformedResponseError{Backend: c.Name(), Reason: "empty completion text"}
	}
	return &Response{
		Text:         text,
		Model:        c.model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *OpenAIClient) classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Backend: c.Name()}
		}
		if apierr.StatusCode >= 500 {
			return &TransportError{Backend: c.Name(), Err: err}
		}
		// 4xx other than 429 will not improve on retry.
		return &MalformedResponseError{Backend: c.Name(), Reason: apierr.Error()}
	}
	return &TransportError{Backend: c.Name(), Err: err}
}
