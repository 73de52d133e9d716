package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/provider"
	"github.com/assessment-engine/recommender/internal/search"
)

func TestOllamaGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama2", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.Contains(t, body["system"], "recruiters")
		w.Write([]byte(`{"response": "Verify Numerical fits the analyst role."}`))
	}))
	defer ts.Close()

	p := provider.NewOllamaProvider(ts.URL, "llama2")

	ans, err := p.Generate(context.Background(), "Which assessment?")
	require.NoError(t, err)
	assert.Equal(t, "Verify Numerical fits the analyst role.", ans)
}

func TestOpenAIGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-fake", r.Header.Get("Authorization"))
		var body struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		w.Write([]byte(`{"choices": [{"message": {"content": "OPQ"}}]}`))
	}))
	defer ts.Close()

	p := provider.NewOpenAIProvider(ts.URL, "gpt-4o-mini", "sk-fake")

	ans, err := p.Generate(context.Background(), "Which assessment?")
	require.NoError(t, err)
	assert.Equal(t, "OPQ", ans)
}

func TestGenerate_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := provider.NewOllamaProvider(ts.URL, "llama2").Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "502")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer empty.Close()

	_, err = provider.NewOpenAIProvider(empty.URL, "gpt-4o-mini", "").Generate(context.Background(), "x")
	assert.ErrorIs(t, err, provider.ErrNoChoices)
}

func TestProviderFactory(t *testing.T) {
	p1 := provider.New(config.LLMConfig{Provider: "ollama", Model: "llama2"})
	assert.Equal(t, "ollama", p1.Name())

	p2 := provider.New(config.LLMConfig{Provider: "openai", Model: "gpt-4", APIKey: "key"})
	assert.Equal(t, "openai", p2.Name())

	p3 := provider.New(config.LLMConfig{Provider: "unknown"})
	assert.Equal(t, "ollama", p3.Name())
}

func TestBuildPrompt(t *testing.T) {
	matches := []search.RankedMatch{
		{Document: search.Document{Name: "Verify Numerical", TestType: "Ability", Duration: 18, RemoteTesting: true}, Score: 0.82},
		{Document: search.Document{Name: "OPQ32r"}, Score: 0.1},
	}

	prompt := provider.BuildPrompt("financial analyst", matches)
	assert.Contains(t, prompt, "HIRING NEED:\nfinancial analyst")
	assert.Contains(t, prompt, "1. Verify Numerical [Ability], 18 min, remote: yes, adaptive: no, relevance 0.82")
	assert.Contains(t, prompt, "2. OPQ32r, remote: no, adaptive: no, relevance 0.10")

	empty := provider.BuildPrompt("astronaut", nil)
	assert.Contains(t, empty, "No matching assessments were found")
}
