package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes between a hosted provider and a local Ollama
// instance: Gemini first for quality, Ollama when Gemini is unreachable or
// out of quota.
type FallbackService struct {
	gemini Service
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini Service, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// Summarize tries Gemini first, falls back to Ollama on connection or quota errors
func (f *FallbackService) Summarize(ctx context.Context, text, promptPrefix string) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.Summarize(ctx, text, promptPrefix)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) || isConnectionError(err) {
			log.Printf("[AI] Gemini summarization unavailable: %v, falling back to Ollama", err)
		} else {
			return "", fmt.Errorf("gemini summarization failed: %w", err)
		}
	}

	if f.ollama != nil {
		return f.ollama.Summarize(ctx, text, promptPrefix)
	}

	return "", fmt.Errorf("no AI provider available for summarization")
}

// Draft tries Gemini first, falls back to Ollama on connection or quota errors
func (f *FallbackService) Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.Draft(ctx, instruction, contextText, tone, format)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) || isConnectionError(err) {
			log.Printf("[AI] Gemini drafting unavailable: %v, falling back to Ollama", err)
		} else {
			return "", fmt.Errorf("gemini drafting failed: %w", err)
		}
	}

	if f.ollama != nil {
		return f.ollama.Draft(ctx, instruction, contextText, tone, format)
	}

	return "", fmt.Errorf("no AI provider available for drafting")
}
