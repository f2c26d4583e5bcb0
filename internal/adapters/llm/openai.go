package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

// DefaultOpenAIURL is the OpenAI API root. Any compatible server works.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	settings   Settings
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOpenAIClient creates an OpenAI-compatible generator.
func NewOpenAIClient(s Settings, hc *http.Client, logger *logging.Logger) *OpenAIClient {
	if s.BaseURL == "" {
		s.BaseURL = DefaultOpenAIURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OpenAIClient{settings: s, httpClient: hc, logger: logger}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements core.TextGenerator.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{}
	if c.settings.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.settings.APIKey
	}

	body := openAIRequest{
		Model:       c.settings.Model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	}

	start := time.Now()
	var resp openAIResponse
	endpoint := strings.TrimRight(c.settings.BaseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, c.httpClient, "openai", endpoint, headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", core.ErrProvider("openai", "empty completion")
	}

	c.logger.Debug("generation completed",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}
