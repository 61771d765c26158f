package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ChatProvider talks to any backend that serves the OpenAI chat completions
// API. Ollama and Anthropic both expose one under /v1.
type ChatProvider struct {
	name      string
	model     string
	maxTokens int
	jsonMode  bool
	client    *openai.Client
}

func newChatProvider(name, apiKey, baseURL, model string, httpClient *http.Client) *ChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = v1URL(baseURL)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &ChatProvider{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// v1URL appends the /v1 prefix the compatibility endpoints live under.
func v1URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}

func (p *ChatProvider) Name() string { return p.name }

func (p *ChatProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   p.maxTokens,
		Temperature: 0.1,
	}
	if p.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s.Complete: %w", p.name, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%s.Complete: %w", p.name, ErrEmptyResponse)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
