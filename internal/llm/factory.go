package llm

import (
	"errors"
	"fmt"
	"os"
)

// ErrDisabled is returned by NewProvider for the "none" provider. Callers
// run on the keyword fallbacks instead.
var ErrDisabled = errors.New("llm provider disabled")

// NewProvider creates a provider for "openai" or "ollama". Credentials and
// hosts come from OPENAI_API_KEY / OPENAI_BASE_URL and OLLAMA_HOST.
func NewProvider(providerType, model string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, os.Getenv("OPENAI_BASE_URL")), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	case "none", "":
		return nil, ErrDisabled

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
