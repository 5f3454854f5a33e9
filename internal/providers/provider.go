package providers

import (
	"context"
	"errors"
	"fmt"
)

// Request is one prompt sent to a generative model.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float32
	// JSON asks the model for a single JSON object.
	JSON bool
}

// Response is the raw completion text.
type Response struct {
	Content    string
	TokensUsed int
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
	Model() string
}

// Embedder turns texts into vectors. The output has the same length and
// order as texts; an empty input yields an empty output.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider       string
	Model          string
	EmbeddingModel string
	BaseURL        string
	APIKey         string
}

// ErrAuth is returned when the provider rejected the credentials.
var ErrAuth = errors.New("authentication error")

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// New creates a client for the named provider. Every supported provider
// speaks the OpenAI-compatible API, so one client serves generation and
// embeddings.
func New(opts Options) (*OpenAI, error) {
	switch opts.Provider {
	case "openai", "ollama", "lmstudio":
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}
