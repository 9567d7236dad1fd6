package ai

import "context"

// Service is the interface for AI summarization and drafting.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type Service interface {
	// Summarize condenses text into a short summary. An empty promptPrefix
	// selects the provider's default instruction.
	Summarize(ctx context.Context, text, promptPrefix string) (string, error)
	// Draft writes a message body from an instruction. format names the
	// output kind, e.g. "email" or "chat message".
	Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
