package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tuannvm/impactlens/internal/config"
	log "github.com/tuannvm/impactlens/internal/logging"
)

// ErrDisabled is returned when llm.enabled is false.
var ErrDisabled = errors.New("LLM digests are disabled: set llm.enabled to true")

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a prompt to the LLM and returns the completion
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client implements the LLMClient interface using langchain-go
type Client struct {
	llm         llms.Model
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewClient creates a new LLM client based on the provided configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.LLMEnabled {
		return nil, ErrDisabled
	}

	opts := []openai.Option{
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithModel(cfg.LLMModel),
	}

	// Select LLM provider based on configuration
	switch cfg.LLMProvider {
	case "openai":
		if cfg.LLMServiceURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMServiceURL))
		}
	case "azure":
		if cfg.LLMServiceURL == "" {
			return nil, fmt.Errorf("llm.service_url is required for the azure provider")
		}
		opts = append(opts,
			openai.WithBaseURL(cfg.LLMServiceURL),
			openai.WithAPIType(openai.APITypeAzure),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return NewClientWithModel(model, cfg), nil
}

// NewClientWithModel wraps an already constructed model.
func NewClientWithModel(model llms.Model, cfg *config.Config) *Client {
	timeout := time.Duration(cfg.LLMTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		llm:         model,
		maxTokens:   cfg.LLMMaxTokens,
		temperature: cfg.LLMTemperature,
		timeout:     timeout,
	}
}

// Complete sends a prompt to the LLM and returns the completion
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.llm == nil {
		return "", errors.New("LLM client not initialized")
	}

	log.Debugf("Sending prompt to LLM: %s", truncateForLogging(prompt))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callOpts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}
	completion, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}

	log.Debugf("Received response from LLM: %s", truncateForLogging(completion))
	return completion, nil
}

// truncateForLogging truncates a string to a reasonable length for logging
func truncateForLogging(s string) string {
	const maxLength = 500
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "... [truncated]"
}
