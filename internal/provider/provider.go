package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/search"
)

const (
	systemPrompt = "You are an assistant helping recruiters choose pre-employment assessments. " +
		"Only recommend assessments from the list you are given."

	// temperature keeps explanations close to the supplied catalog entries.
	temperature = 0.2
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// LLMProvider defines the interface for AI model integration
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New picks the provider named in cfg; anything but "openai" uses Ollama.
func New(cfg config.LLMConfig) LLMProvider {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.BaseURL, cfg.Model, cfg.APIKey)
	default:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	}
}

// BuildPrompt asks the model to explain why the ranked assessments fit the
// hiring need described in query.
func BuildPrompt(query string, matches []search.RankedMatch) string {
	var b strings.Builder
	b.WriteString("Using only the candidate assessments listed below, explain briefly which ones best fit the hiring need and why.\n")
	b.WriteString("If none of them fit, say so clearly.\n\n")

	b.WriteString("HIRING NEED:\n")
	b.WriteString(query)
	b.WriteString("\n\nCANDIDATE ASSESSMENTS:\n")
	if len(matches) == 0 {
		b.WriteString("No matching assessments were found in the catalog.\n")
	}
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s", i+1, m.Document.Name)
		if m.Document.TestType != "" {
			fmt.Fprintf(&b, " [%s]", m.Document.TestType)
		}
		if m.Document.Duration > 0 {
			fmt.Fprintf(&b, ", %d min", m.Document.Duration)
		}
		fmt.Fprintf(&b, ", remote: %s, adaptive: %s, relevance %.2f\n",
			yesNo(m.Document.RemoteTesting), yesNo(m.Document.AdaptiveIRT), m.Score)
	}

	b.WriteString("\nRESPONSE:\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// postJSON sends payload and decodes a 200 response into out.
func postJSON(ctx context.Context, url, apiKey string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
