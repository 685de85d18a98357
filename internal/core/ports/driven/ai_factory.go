package driven

import (
	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// EmbeddingFactory creates the embedding provider selected by configuration
type EmbeddingFactory interface {
	// CreateEmbeddingService creates an embedding service from settings.
	// Returns domain.ErrInvalidProvider for unknown providers.
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
}
