package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

// DefaultGeminiURL is the Generative Language API root.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	settings   Settings
	httpClient *http.Client
	logger     *logging.Logger
}

// NewGeminiClient creates a Gemini generator.
func NewGeminiClient(s Settings, hc *http.Client, logger *logging.Logger) *GeminiClient {
	if s.BaseURL == "" {
		s.BaseURL = DefaultGeminiURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GeminiClient{settings: s, httpClient: hc, logger: logger}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate implements core.TextGenerator.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.settings.APIKey == "" {
		return "", core.ErrProvider("gemini", "api key is not configured")
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.Temperature = c.settings.Temperature
	body.GenerationConfig.MaxOutputTokens = c.settings.MaxTokens

	endpoint := strings.TrimRight(c.settings.BaseURL, "/") + "/models/" + url.PathEscape(c.settings.Model) +
		":generateContent?key=" + url.QueryEscape(c.settings.APIKey)

	start := time.Now()
	var resp geminiResponse
	if err := postJSON(ctx, c.httpClient, "gemini", endpoint, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", core.ErrProvider("gemini", "prompt blocked: "+resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", core.ErrProvider("gemini", "response has no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", core.ErrProvider("gemini", "empty completion")
	}

	c.logger.Debug("generation completed",
		"model", c.settings.Model,
		"finish_reason", resp.Candidates[0].FinishReason,
		"duration", time.Since(start))
	return text, nil
}
