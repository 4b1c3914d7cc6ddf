package summary

import (
	"context"
	"fmt"
	"strings"

	"policypulse/backend/internal/config"
)

// Provider is a generative text backend. Implementations own their transport
// and return the raw model text; parsing happens in this package.
type Provider interface {
	Name() string
	Model() string
	GenerateResponse(ctx context.Context, messages []Message) (Response, error)
	ValidateConfig() bool
}

// ConfigError reports a provider that cannot be built from configuration.
// It is never retried.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("AI provider %q: %s", e.Provider, e.Reason)
}

// NewProvider builds the provider named by cfg.AIProvider.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	var (
		provider Provider
		err      error
	)
	switch name {
	case "mock":
		provider = NewMockProvider()
	case "openai":
		provider = NewOpenAIProvider(cfg)
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg)
		if err != nil {
			return nil, &ConfigError{Provider: name, Reason: err.Error()}
		}
	case "anthropic", "azure-openai", "ollama":
		return nil, &ConfigError{Provider: name, Reason: "provider is not implemented"}
	default:
		return nil, &ConfigError{Provider: name, Reason: "unsupported AI provider"}
	}
	if !provider.ValidateConfig() {
		return nil, &ConfigError{Provider: name, Reason: "provider is missing credentials or model"}
	}
	return provider, nil
}
