package provider

import (
	"context"
	"errors"
	"fmt"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// ErrNoChoices is returned when a chat completion comes back empty.
var ErrNoChoices = errors.New("no choices returned")

type OpenAIProvider struct {
	BaseURL string
	Model   string
	APIKey  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIProvider(baseURL, model, apiKey string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAIProvider{BaseURL: baseURL, Model: model, APIKey: apiKey}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}

	var resp chatResponse
	if err := postJSON(ctx, p.BaseURL, p.APIKey, req, &resp); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}
