package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// TextGenerator turns a single prompt into generated text.
// All providers (Gemini, OpenAI, Ollama) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Providers lists the supported generation providers.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderOllama}

// Config selects and configures the process-wide generation backend.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint (Gemini proxies,
	// OpenAI-compatible servers, remote Ollama hosts).
	BaseURL string
}

// NormalizeProvider lowercases and trims a provider name, defaulting to gemini.
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return ProviderGemini
	}
	return provider
}

// IsKnownProvider reports whether provider names a supported backend.
func IsKnownProvider(provider string) bool {
	return lo.Contains(Providers, NormalizeProvider(provider))
}

// RequiresAPIKey reports whether the provider cannot work without a credential.
func RequiresAPIKey(provider string) bool {
	return NormalizeProvider(provider) != ProviderOllama
}

// DisplayName returns the human-readable provider name reported to clients.
func DisplayName(provider string) string {
	switch NormalizeProvider(provider) {
	case ProviderGemini:
		return "Google Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderOllama:
		return "Ollama"
	default:
		return provider
	}
}

// NewGenerator builds the TextGenerator for cfg.Provider. Generators that hold
// long-lived connections also implement io.Closer.
func NewGenerator(ctx context.Context, cfg Config) (TextGenerator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("generation model required")
	}
	switch provider := NormalizeProvider(cfg.Provider); provider {
	case ProviderGemini:
		gen, err := NewGeminiGenerator(ctx, cfg.BaseURL, cfg.APIKey, model)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderOpenAI:
		gen, err := NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, model)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
