package ai

import (
	"fmt"

	"flowdesk-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewService creates a Service based on the config. This is the factory
// function - switch AI provider by changing config.Provider.
func NewService(cfg Config) (Service, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		// Auto: Gemini when a key is configured, with Ollama as the local
		// fallback; Ollama alone otherwise.
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(gemini.NewService(cfg.GeminiAPIKey), NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)), nil
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	}
}
