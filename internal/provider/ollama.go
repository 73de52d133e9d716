package provider

import (
	"context"
	"fmt"
)

const defaultOllamaURL = "http://localhost:11434/api/generate"

type OllamaProvider struct {
	BaseURL string
	Model   string
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{BaseURL: baseURL, Model: model}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Generate runs a single non-streaming completion.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := ollamaRequest{
		Model:   p.Model,
		System:  systemPrompt,
		Prompt:  prompt,
		Options: ollamaOptions{Temperature: temperature},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, p.BaseURL, "", req, &resp); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return resp.Response, nil
}
