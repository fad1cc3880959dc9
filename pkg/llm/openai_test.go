package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/config"
)

func newProviderFor(url string) *OpenAIProvider {
	return NewOpenAIProvider(config.LLMConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		Timeout:    5,
		MaxRetries: 1,
		RetryDelay: 1,
		MaxTokens:  128,
	})
}

func TestGenerate(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Портфель умеренно рискованный."}},
			},
		})
	}))
	defer srv.Close()

	p := newProviderFor(srv.URL)
	assert.Equal(t, "gpt-4o-mini", p.ModelName())

	text, err := p.Generate(context.Background(), []Message{
		{Role: "system", Content: "summarize"},
		{Role: "user", Content: "оцени риск"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Портфель умеренно рискованный.", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		})
	}))
	defer srv.Close()

	_, err := newProviderFor(srv.URL).Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newProviderFor(srv.URL).Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := newProviderFor(srv.URL).Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
