package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIModel   = "text-embedding-3-small"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// DefaultOpenAIFallbackModels are tried in order when the configured model
// is rejected by an OpenAI-compatible proxy. Both accept a shortened
// output size, so they can serve any pinned dimension.
var DefaultOpenAIFallbackModels = []string{
	"text-embedding-3-small",
	"text-embedding-3-large",
}

// Native dimensions of OpenAI embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding implements EmbeddingService against an OpenAI-compatible
// embeddings endpoint. When the API reports an invalid model, the next
// candidate model is tried and kept for later calls.
type OpenAIEmbedding struct {
	client     *openai.Client
	httpClient *http.Client
	baseURL    string
	dimensions int

	mu     sync.RWMutex
	models []string // candidates, active model first
}

// NewOpenAIEmbedding creates a new OpenAI embedding service. A positive
// dimension pins the vector size; text-embedding-3 models are asked to
// shorten their output to it. Fallback models that can never produce the
// pinned size are dropped.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimension int, fallbackModels []string) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidProvider)
	}

	if model == "" {
		model = defaultOpenAIModel
	}

	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if dimension <= 0 {
		var ok bool
		if dimension, ok = openAIModelDimensions[model]; !ok {
			dimension = 1536
		}
	}

	models := []string{model}
	for _, m := range fallbackModels {
		if m != "" && m != model && servesDimension(m, dimension) {
			models = append(models, m)
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	config.HTTPClient = httpClient

	return &OpenAIEmbedding{
		client:     openai.NewClientWithConfig(config),
		httpClient: httpClient,
		baseURL:    baseURL,
		dimensions: dimension,
		models:     models,
	}, nil
}

// servesDimension reports whether model can return vectors of size dim.
// Unknown models are assumed to, since proxies rename models freely.
func servesDimension(model string, dim int) bool {
	if acceptsDimensions(model) {
		return true
	}
	native, known := openAIModelDimensions[model]
	return !known || native == dim
}

// acceptsDimensions reports whether the model honours the dimensions field
func acceptsDimensions(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3")
}

// Embed generates embeddings for multiple texts, preserving input order
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for _, model := range e.candidates() {
		resp, err := e.client.CreateEmbeddings(ctx, e.request(model, texts))
		if isInvalidModel(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
		}

		e.promote(model)
		return e.collect(texts, resp)
	}

	return nil, fmt.Errorf("%w: no supported embedding model among %v", domain.ErrEmbedding, e.candidates())
}

// EmbedQuery generates an embedding for a search query
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model currently in use
func (e *OpenAIEmbedding) Model() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.models[0]
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

func (e *OpenAIEmbedding) candidates() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.models))
	copy(out, e.models)
	return out
}

// promote moves model to the front of the candidate list
func (e *OpenAIEmbedding) promote(model string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.models[0] == model {
		return
	}
	reordered := []string{model}
	for _, m := range e.models {
		if m != model {
			reordered = append(reordered, m)
		}
	}
	e.models = reordered
}

func (e *OpenAIEmbedding) request(model string, texts []string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if acceptsDimensions(model) && e.dimensions != openAIModelDimensions[model] {
		req.Dimensions = e.dimensions
	}
	return req
}

// collect orders embeddings by index and checks their size
func (e *OpenAIEmbedding) collect(texts []string, resp openai.EmbeddingResponse) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}

	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", domain.ErrEmbedding, i)
		}
		if len(emb) != e.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(emb), e.dimensions)
		}
	}
	return embeddings, nil
}

// isInvalidModel recognises "Invalid model" rejections from OpenAI and
// OpenAI-compatible proxies. Proxies that answer with a non-standard error
// body surface as a RequestError carrying the raw text.
func isInvalidModel(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "model_not_found" {
			return true
		}
		return mentionsInvalidModel(apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return mentionsInvalidModel(reqErr.Error())
	}
	return false
}

func mentionsInvalidModel(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "invalid model") || strings.Contains(lower, "model_not_found")
}
