package llm

import (
	"fmt"
	"strings"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Options selects and configures a provider for one model profile.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New constructs a client for the configured provider.
func New(opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "anthropic"
	}

	switch provider {
	case "anthropic":
		return NewAnthropicClient(opts.APIKey, opts.Model), nil
	case "openai":
		return NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL), nil
	case "groq":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		return NewOpenAIClient(opts.APIKey, opts.Model, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", opts.Provider)
	}
}
