package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the selected provider lacks credentials.
var ErrNotConfigured = errors.New("llm: provider not configured")

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
)

// Options selects and configures one provider.
type Options struct {
	Provider string

	// OpenAI-compatible endpoint (OpenRouter by default).
	APIKey  string
	BaseURL string

	GeminiAPIKey string
	Vertex       VertexConfig

	Model   string
	Timeout time.Duration
}

// New builds the client for opts.Provider. An empty provider means OpenAI-compatible.
func New(opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch provider {
	case "", ProviderOpenAI, "openrouter":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, fmt.Errorf("%w: set OPENROUTER_API_KEY or OPENAI_API_KEY", ErrNotConfigured)
		}
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout), nil
	case ProviderGemini:
		if strings.TrimSpace(opts.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("%w: set GEMINI_API_KEY", ErrNotConfigured)
		}
		return NewGeminiClient(opts.GeminiAPIKey, opts.Model, opts.Timeout), nil
	case ProviderVertex:
		cfg := opts.Vertex
		if strings.TrimSpace(cfg.Model) == "" {
			cfg.Model = opts.Model
		}
		if strings.TrimSpace(cfg.ProjectID) == "" {
			return nil, fmt.Errorf("%w: set VERTEX_PROJECT_ID", ErrNotConfigured)
		}
		return NewVertexClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}

// ProviderName normalizes a provider setting for labels and logs.
func ProviderName(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "", "openrouter":
		return ProviderOpenAI
	default:
		return p
	}
}

// Unavailable returns a client that fails every call with err, so the
// server can start and report a missing provider per request.
func Unavailable(err error) Client {
	return unavailableClient{err: err}
}

type unavailableClient struct {
	err error
}

func (c unavailableClient) Complete(context.Context, Request) (Response, error) {
	return Response{}, c.err
}
