// Package memory provides in-process adapters for development and tests.
// State lives only as long as the process.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure VectorStore implements driven.VectorStore
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a brute-force cosine similarity store.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.VectorRecord
	order     []string // insertion order of ids
}

// NewVectorStore creates an empty store. EnsureIndex must run before Upsert.
func NewVectorStore() *VectorStore {
	return &VectorStore{records: make(map[string]domain.VectorRecord)}
}

// EnsureIndex fixes the vector dimension. Re-running with the same
// dimension keeps existing records.
func (s *VectorStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: index has %d, requested %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

// Upsert writes records, replacing any with the same id
func (s *VectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return fmt.Errorf("%w: index not created", domain.ErrStoreUnavailable)
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d, want %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}
	}

	for _, r := range records {
		if _, exists := s.records[r.ID]; !exists {
			s.order = append(s.order, r.ID)
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		s.records[r.ID] = r
	}
	return nil
}

// Query scores every record passing filter and returns the topK best.
// Ties keep insertion order.
func (s *VectorStore) Query(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}

	var matches []*domain.Match
	for _, id := range s.order {
		r := s.records[id]
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, &domain.Match{
			ID:       r.ID,
			Score:    cosine(vector, r.Vector),
			Metadata: r.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// HealthCheck always succeeds
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *VectorStore) Close() error {
	return nil
}

// Len returns the number of stored records
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cosine returns the cosine similarity of a and b, or 0 if either is zero
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
