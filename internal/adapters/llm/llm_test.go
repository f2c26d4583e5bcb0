package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(Settings{APIKey: "k1", BaseURL: srv.URL, Model: "gemini-2.0-flash", Temperature: 0.7, MaxTokens: 2048}, nil, nil)
	out, err := c.Generate(context.Background(), "write something")
	require.NoError(t, err)

	assert.Equal(t, "Hello world", out)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "k1", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "write something", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.7, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 2048, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestGeminiClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`},
		{"malformed", http.StatusOK, `{"candidates":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewGeminiClient(Settings{APIKey: "k", BaseURL: srv.URL, Model: "m"}, nil, nil)
			_, err := c.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, core.IsCategory(err, core.ErrCatProvider))
		})
	}
}

func TestGeminiClient_MissingKey(t *testing.T) {
	c := NewGeminiClient(Settings{Model: "m"}, nil, nil)
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatProvider))
}

func TestOpenAIClient_Generate(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"model":"gpt","choices":[{"message":{"role":"assistant","content":"draft text"}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Settings{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt"}, nil, nil)
	out, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "draft text", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "gpt", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Settings{BaseURL: srv.URL}, nil, nil)
	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	g, err := New(ProviderGemini, Settings{}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, g)

	g, err = New(ProviderOpenAI, Settings{}, 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, g)

	_, err = New("claude", Settings{}, 0, nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}
