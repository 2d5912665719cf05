package llm

import "context"

// Client is the one operation the simulation runtime needs from an LLM:
// chat completion with an optional structured tool call. Every component
// above this package (persona responder, goal validator, grader) is
// provider-agnostic through this interface.
type Client interface {
	// Name identifies the provider, for logging.
	Name() string
	// Model returns the model identifier in use.
	Model() string
	// Complete sends a chat-completion request and returns the reply.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Provider identifies a supported backend, selected via configuration.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)
