// Package llm hides the language-model backends behind a single Provider
// interface. Providers return raw text; validation happens in the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/prompts"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is one model call: a system instruction plus the user payload.
type Request struct {
	Task   prompts.Task
	System string
	User   string
}

// Response carries the raw model text and usage numbers when the backend reports them.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider sends a request to a model and returns its raw answer.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// New builds the provider selected in cfg.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case config.ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("New: %w", err)
		}
		return p, nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, httpClient), nil
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("New: anthropic provider requires ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(cfg.AnthropicURL, cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxToks, httpClient), nil
	case config.ProviderHeuristic:
		return NewHeuristicProvider(), nil
	default:
		return nil, fmt.Errorf("New: unknown provider %q", cfg.Provider)
	}
}
