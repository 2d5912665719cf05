package llm

import "fmt"

// Config selects and configures one backend.
type Config struct {
	Provider    Provider
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// New builds a Client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = "gpt-4o"
		}
		return NewOpenAIClient(cfg.APIKey, model, cfg.Temperature), nil
	case ProviderAnthropic:
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return NewAnthropicClient(cfg.APIKey, model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
