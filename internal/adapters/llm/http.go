// Package llm adapts hosted language models to core.TextGenerator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// maxResponseSize limits a provider response body.
const maxResponseSize = 10 * 1024 * 1024

// Settings are shared by every provider.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// postJSON sends body and decodes a 200 response into out.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return core.ErrProvider(provider, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return core.ErrProvider(provider, "reading response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return core.ErrProvider(provider, fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", truncate(string(raw), 512))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.ErrProvider(provider, "malformed response").WithCause(err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
