package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

// ErrTest is a generic test error.
var ErrTest = errors.New("test error")

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

type recorder struct {
	mu    sync.Mutex
	calls []MockCall
}

func (r *recorder) record(method string, args interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, MockCall{Method: method, Args: args, Timestamp: time.Now()})
}

// Calls returns the recorded calls in order.
func (r *recorder) Calls() []MockCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MockCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns the number of calls made.
func (r *recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// MockSearch implements core.SearchProvider.
type MockSearch struct {
	recorder
	searchFunc func(ctx context.Context, query string, limit int) ([]core.SearchResult, error)
}

// NewMockSearch creates a search provider that returns no results.
func NewMockSearch() *MockSearch {
	return &MockSearch{}
}

// Search records the query and delegates to the configured function.
func (m *MockSearch) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	m.record("Search", query)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

// Queries returns every query seen, in call order.
func (m *MockSearch) Queries() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i], _ = c.Args.(string)
	}
	return out
}

// WithFunc sets a custom search function.
func (m *MockSearch) WithFunc(fn func(ctx context.Context, query string, limit int) ([]core.SearchResult, error)) *MockSearch {
	m.searchFunc = fn
	return m
}

// WithResults returns results (truncated to limit) for every query.
func (m *MockSearch) WithResults(results ...core.SearchResult) *MockSearch {
	m.searchFunc = func(_ context.Context, _ string, limit int) ([]core.SearchResult, error) {
		if limit > 0 && len(results) > limit {
			return results[:limit], nil
		}
		return results, nil
	}
	return m
}

// WithError fails every search.
func (m *MockSearch) WithError(err error) *MockSearch {
	m.searchFunc = func(context.Context, string, int) ([]core.SearchResult, error) {
		return nil, err
	}
	return m
}

// MockGenerator implements core.TextGenerator.
type MockGenerator struct {
	recorder
	generateFunc func(ctx context.Context, prompt string) (string, error)
}

// NewMockGenerator creates a generator that echoes a fixed reply.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the prompt and delegates to the configured function.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.record("Generate", prompt)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	return "mock response", nil
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockGenerator) LastPrompt() string {
	calls := m.Calls()
	if len(calls) == 0 {
		return ""
	}
	p, _ := calls[len(calls)-1].Args.(string)
	return p
}

// WithResponse configures a fixed response.
func (m *MockGenerator) WithResponse(output string) *MockGenerator {
	m.generateFunc = func(context.Context, string) (string, error) {
		return output, nil
	}
	return m
}

// WithError fails every generation.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.generateFunc = func(context.Context, string) (string, error) {
		return "", err
	}
	return m
}

// WithFunc sets a custom generate function.
func (m *MockGenerator) WithFunc(fn func(ctx context.Context, prompt string) (string, error)) *MockGenerator {
	m.generateFunc = fn
	return m
}

// FailingStore wraps a StateStore and fails Replace once armed.
type FailingStore struct {
	core.StateStore
	mu          sync.Mutex
	replaceErr  error
	replaceSeen int
}

// NewFailingStore wraps store.
func NewFailingStore(store core.StateStore) *FailingStore {
	return &FailingStore{StateStore: store}
}

// FailReplace makes every following Replace return err.
func (f *FailingStore) FailReplace(err error) *FailingStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceErr = err
	return f
}

// Replace delegates unless armed.
func (f *FailingStore) Replace(ctx context.Context, state *core.ContentState) error {
	f.mu.Lock()
	f.replaceSeen++
	err := f.replaceErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.StateStore.Replace(ctx, state)
}

// ReplaceCount returns how many times Replace was called.
func (f *FailingStore) ReplaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaceSeen
}
