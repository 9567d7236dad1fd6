package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const generateURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

// Service is a thin client for the Gemini generateContent endpoint. The
// integration core treats it as a black box: one call per item, failures
// are hard errors for that item.
type Service struct {
	apiKey string
	client *http.Client
}

// NewService creates a new Gemini service.
func NewService(apiKey string) *Service {
	return &Service{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Summarize produces a short summary of the text. promptPrefix, when set,
// steers the summary toward a specific angle.
func (g *Service) Summarize(ctx context.Context, text, promptPrefix string) (string, error) {
	if promptPrefix == "" {
		promptPrefix = "Summarize the following in at most two sentences, keeping any action items or deadlines."
	}
	prompt := fmt.Sprintf("%s\n\n%s", promptPrefix, text)
	return g.generate(ctx, prompt)
}

// Draft composes a message body from an instruction. contextText, tone and
// format are optional steering hints.
func (g *Service) Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error) {
	prompt := fmt.Sprintf("Write a %s following this instruction: %s", orDefault(format, "message"), instruction)
	if tone != "" {
		prompt += fmt.Sprintf("\nTone: %s", tone)
	}
	if contextText != "" {
		prompt += fmt.Sprintf("\n\nContext:\n%s", contextText)
	}
	prompt += "\n\nReturn only the body text, no preamble."
	return g.generate(ctx, prompt)
}

func (g *Service) generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generateURL+"?key="+g.apiKey, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no text returned")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
