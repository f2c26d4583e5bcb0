package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New builds the generator for provider.
func New(provider string, s Settings, timeout time.Duration, logger *logging.Logger) (core.TextGenerator, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	switch provider {
	case ProviderGemini, "":
		return NewGeminiClient(s, hc, logger), nil
	case ProviderOpenAI:
		return NewOpenAIClient(s, hc, logger), nil
	default:
		return nil, core.ErrConfig(fmt.Sprintf("unknown llm provider %q", provider))
	}
}
