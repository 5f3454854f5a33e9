package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/sashabaranov/go-openai"
)

var defaultBaseURLs = map[string]string{
	"ollama":   "http://localhost:11434/v1",
	"lmstudio": "http://localhost:1234/v1",
}

// OpenAI implements Generator and Embedder on top of the OpenAI-compatible
// chat and embeddings endpoints.
type OpenAI struct {
	client     *openai.Client
	provider   string
	model      string
	embedModel string
}

// NewOpenAI creates a client. The API key comes from opts or
// OPENAI_API_KEY; local providers accept any key.
func NewOpenAI(opts Options) (*OpenAI, error) {
	provider := opts.Provider
	if provider == "" {
		provider = "openai"
	}
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		if provider == "openai" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		key = provider
	}

	cfg := openai.DefaultConfig(key)
	switch {
	case opts.BaseURL != "":
		cfg.BaseURL = opts.BaseURL
	case defaultBaseURLs[provider] != "":
		cfg.BaseURL = defaultBaseURLs[provider]
	}

	embedModel := opts.EmbeddingModel
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}
	return &OpenAI{
		client:     openai.NewClientWithConfig(cfg),
		provider:   provider,
		model:      opts.Model,
		embedModel: embedModel,
	}, nil
}

func (o *OpenAI) Name() string  { return o.provider }
func (o *OpenAI) Model() string { return o.model }

// Generate sends one chat completion. It does not retry.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	creq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return Response{}, wrapError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}
	if resp.Choices[0].Message.Content == "" {
		return Response{}, fmt.Errorf("empty text content in API response")
	}
	return Response{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// Embed returns one vector per text, in input order.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.embedModel),
	})
	if err != nil {
		return nil, wrapError("embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func wrapError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
		return fmt.Errorf("%s: %w: %s", op, ErrAuth, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
		return fmt.Errorf("%s: %w", op, ErrAuth)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
