package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure OllamaEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OllamaEmbedding)(nil)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "all-minilm"
)

// Native dimensions of common local embedding models
var ollamaModelDimensions = map[string]int{
	"all-minilm":        384,
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
}

// OllamaEmbedding implements EmbeddingService using a local Ollama server.
// Ollama embeds one prompt per request, so batches are sent sequentially.
type OllamaEmbedding struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEmbedding creates a new Ollama embedding service
func NewOllamaEmbedding(baseURL, model string, dimension int) (*OllamaEmbedding, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if dimension <= 0 {
		var ok bool
		if dimension, ok = ollamaModelDimensions[model]; !ok {
			return nil, fmt.Errorf("%w: dimension required for model %s", domain.ErrInvalidProvider, model)
		}
	}

	return &OllamaEmbedding{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimension,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed generates embeddings for multiple texts, preserving input order
func (o *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := o.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query
func (o *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return o.embedOne(ctx, query)
}

// Dimensions returns the embedding dimension size
func (o *OllamaEmbedding) Dimensions() int {
	return o.dimensions
}

// Model returns the model name being used
func (o *OllamaEmbedding) Model() string {
	return o.model
}

// HealthCheck verifies the Ollama server answers
func (o *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama unreachable: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", domain.ErrEmbedding, resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the embedding service
func (o *OllamaEmbedding) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func (o *OllamaEmbedding) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling ollama: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	var embResp ollamaEmbedResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&embResp)

	if resp.StatusCode != http.StatusOK {
		if embResp.Error != "" {
			return nil, fmt.Errorf("%w: ollama returned status %d: %s", domain.ErrEmbedding, resp.StatusCode, embResp.Error)
		}
		return nil, fmt.Errorf("%w: ollama returned status %d", domain.ErrEmbedding, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrEmbedding, decodeErr)
	}
	if len(embResp.Embedding) != o.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(embResp.Embedding), o.dimensions)
	}

	return embResp.Embedding, nil
}
