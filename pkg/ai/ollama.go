package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultSummarizePrompt = "Summarize the following content in at most three sentences, keeping decisions, action items and deadlines."

// OllamaService implements Service using an Ollama local LLM
type OllamaService struct {
	baseURL string
	model   string
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{baseURL: baseURL, model: model}
}

// Summarize implements Service
func (o *OllamaService) Summarize(ctx context.Context, text, promptPrefix string) (string, error) {
	if promptPrefix == "" {
		promptPrefix = defaultSummarizePrompt
	}
	prompt := fmt.Sprintf(`%s

CONTENT:
%s

SUMMARY:`, promptPrefix, text)

	return o.generate(ctx, prompt, 150)
}

// Draft implements Service
func (o *OllamaService) Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the body of a %s following this instruction: %s\n", format, instruction)
	if contextText != "" {
		fmt.Fprintf(&b, "\nCONTEXT:\n%s\n", contextText)
	}
	if tone != "" {
		fmt.Fprintf(&b, "\nUse a %s tone.\n", tone)
	}
	b.WriteString("\nReturn only the body text, no subject line and no commentary.\n\nBODY:")

	return o.generate(ctx, b.String(), 500)
}

func (o *OllamaService) generate(ctx context.Context, prompt string, numPredict int) (string, error) {
	url := o.baseURL + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": numPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}
