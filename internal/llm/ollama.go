package llm

import (
	"net/http"

	"github.com/dvloznov/fintrack-ai/internal/config"
)

// NewOllamaProvider returns a chat provider for a local Ollama server. Ollama
// needs no API key, and its json_object mode keeps answers parseable.
func NewOllamaProvider(baseURL, model string, client *http.Client) *ChatProvider {
	p := newChatProvider(config.ProviderOllama, "ollama", baseURL, model, client)
	p.jsonMode = true
	return p
}
