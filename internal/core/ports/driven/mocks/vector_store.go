package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// MockVectorStore is a mock implementation of VectorStore for testing.
// By default it keeps records in memory and scores every match with DefaultScore.
type MockVectorStore struct {
	mu        sync.RWMutex
	records   map[string]domain.VectorRecord
	order     []string
	upserts   int
	queries   []QueryCall
	dimension int

	DefaultScore float64

	// Custom behavior hooks (optional)
	EnsureIndexFn func(dimension int) error
	UpsertFn      func(records []domain.VectorRecord) error
	QueryFn       func(vector []float32, filter domain.Filter, topK int) ([]*domain.Match, error)
	HealthFn      func() error
}

// QueryCall records the arguments of one Query invocation
type QueryCall struct {
	Vector []float32
	Filter domain.Filter
	TopK   int
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		records:      make(map[string]domain.VectorRecord),
		DefaultScore: 0.8,
	}
}

func (m *MockVectorStore) EnsureIndex(ctx context.Context, dimension int) error {
	if m.EnsureIndexFn != nil {
		return m.EnsureIndexFn(dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	return nil
}

func (m *MockVectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	m.upserts++
	m.mu.Unlock()

	if m.UpsertFn != nil {
		return m.UpsertFn(records)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if _, exists := m.records[r.ID]; !exists {
			m.order = append(m.order, r.ID)
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]*domain.Match, error) {
	m.mu.Lock()
	m.queries = append(m.queries, QueryCall{Vector: vector, Filter: filter, TopK: topK})
	m.mu.Unlock()

	if m.QueryFn != nil {
		return m.QueryFn(vector, filter, topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*domain.Match
	for _, id := range m.order {
		r := m.records[id]
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, &domain.Match{ID: r.ID, Score: m.DefaultScore, Metadata: r.Metadata})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorStore) HealthCheck(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn()
	}
	return nil
}

func (m *MockVectorStore) Close() error {
	return nil
}

// Helper methods for testing

// Records returns stored records in insertion order
func (m *MockVectorStore) Records() []domain.VectorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.VectorRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// UpsertCalls returns the number of Upsert invocations
func (m *MockVectorStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// Queries returns every Query invocation
func (m *MockVectorStore) Queries() []QueryCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QueryCall, len(m.queries))
	copy(out, m.queries)
	return out
}

// Dimension returns the dimension passed to EnsureIndex
func (m *MockVectorStore) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimension
}
