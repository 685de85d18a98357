package driven

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// VectorStore persists chunk vectors with metadata and answers filtered
// cosine-similarity queries. It exclusively owns persisted vectors.
type VectorStore interface {
	// EnsureIndex creates the index with the given dimension and cosine metric
	// if it does not exist, and returns only once the store reports ready.
	EnsureIndex(ctx context.Context, dimension int) error

	// Upsert writes records; an existing id is overwritten
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to topK matches satisfying filter, highest score first.
	// Metadata is always attached.
	Query(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]*domain.Match, error)

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store
	Close() error
}
