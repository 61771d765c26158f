package llm

import (
	"net/http"

	"github.com/dvloznov/fintrack-ai/internal/config"
)

const defaultAnthropicMaxTokens = 4096

// NewAnthropicProvider returns a chat provider for Claude models through
// Anthropic's OpenAI-compatible endpoint. That endpoint requires max_tokens and
// ignores response_format.
func NewAnthropicProvider(baseURL, apiKey, model string, maxTokens int, client *http.Client) *ChatProvider {
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	p := newChatProvider(config.ProviderAnthropic, apiKey, baseURL, model, client)
	p.maxTokens = maxTokens
	return p
}
