package ai

import (
	"fmt"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure Factory implements EmbeddingFactory
var _ driven.EmbeddingFactory = (*Factory)(nil)

// Factory creates the embedding provider selected by configuration
type Factory struct{}

// NewFactory creates a new embedding provider factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider is not configured", domain.ErrInvalidProvider)
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		fallbacks := settings.FallbackModels
		if fallbacks == nil {
			fallbacks = DefaultOpenAIFallbackModels
		}
		svc, err := NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, settings.Dimension, fallbacks)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case domain.AIProviderOllama:
		svc, err := NewOllamaEmbedding(settings.BaseURL, settings.Model, settings.Dimension)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
