// Package search adapts web search backends to core.SearchProvider.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

// DefaultBraveURL is the Brave web search endpoint.
const DefaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

const maxResponseBytes = 4 << 20

// Limiter gates outgoing requests.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// BraveClient queries the Brave Search API.
type BraveClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
	cleaner    *SnippetCleaner
	logger     *logging.Logger
}

// BraveOption configures a BraveClient.
type BraveOption func(*BraveClient)

// WithBaseURL overrides the endpoint.
func WithBaseURL(u string) BraveOption {
	return func(c *BraveClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) BraveOption {
	return func(c *BraveClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) BraveOption {
	return func(c *BraveClient) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLimiter throttles requests through l.
func WithLimiter(l Limiter) BraveOption {
	return func(c *BraveClient) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) BraveOption {
	return func(c *BraveClient) {
		c.logger = l
	}
}

// NewBraveClient creates a client authenticated with apiKey.
func NewBraveClient(apiKey string, opts ...BraveOption) *BraveClient {
	c := &BraveClient{
		apiKey:     apiKey,
		baseURL:    DefaultBraveURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cleaner:    NewSnippetCleaner(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements core.SearchProvider.
func (c *BraveClient) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if c.apiKey == "" {
		return nil, core.ErrProvider("brave", "search api key is not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, core.ErrConfig("invalid search base url").WithCause(err)
	}
	q := u.Query()
	q.Set("q", query)
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.ErrProvider("brave", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, core.ErrProvider("brave", "reading response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ErrProvider("brave", fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, core.ErrProvider("brave", "malformed response").WithCause(err)
	}

	results := make([]core.SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if limit > 0 && len(results) == limit {
			break
		}
		results = append(results, core.SearchResult{
			Title:       c.cleaner.Clean(r.Title),
			URL:         r.URL,
			Description: c.cleaner.Clean(r.Description),
		})
	}

	c.logger.Debug("search completed",
		"query", query,
		"results", len(results),
		"duration", time.Since(start))
	return results, nil
}
