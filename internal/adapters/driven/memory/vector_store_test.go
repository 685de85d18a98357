package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func record(id, doc string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:     id,
		Vector: vec,
		Metadata: domain.ChunkMetadata{
			DocumentID: doc,
			Text:       "text of " + id,
			Page:       1,
			Type:       domain.ChunkTypeText,
			ChunkID:    id,
		},
	}
}

func newStore(t *testing.T) *VectorStore {
	t.Helper()
	s := NewVectorStore()
	require.NoError(t, s.EnsureIndex(context.Background(), 2))
	return s
}

func TestVectorStore_QueryRanksByCosine(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("a", "doc1", 1, 0),
		record("b", "doc1", 0, 1),
		record("c", "doc1", 1, 1),
	}))

	matches, err := s.Query(ctx, []float32{1, 0}, domain.Filter{domain.MetaDocumentID: "doc1"}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "c", matches[1].ID)
	assert.InDelta(t, 0.7071, matches[1].Score, 1e-4)
	assert.Equal(t, "text of a", matches[0].Metadata.Text)
}

func TestVectorStore_FilterByDocument(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("a", "doc1", 1, 0),
		record("b", "doc2", 1, 0),
	}))

	matches, err := s.Query(ctx, []float32{1, 0}, domain.Filter{domain.MetaDocumentID: "doc2"}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)

	matches, err = s.Query(ctx, []float32{1, 0}, domain.Filter{domain.MetaDocumentID: "missing"}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorStore_UpsertOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 1, 0)}))
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 0, 1)}))

	assert.Equal(t, 1, s.Len())
	matches, err := s.Query(ctx, []float32{0, 1}, nil, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestVectorStore_ZeroVectorScoresZero(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 1, 0)}))

	matches, err := s.Query(ctx, []float32{0, 0}, nil, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Score)
}

func TestVectorStore_DimensionChecks(t *testing.T) {
	ctx := context.Background()

	s := NewVectorStore()
	err := s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 1, 0)})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	require.NoError(t, s.EnsureIndex(ctx, 2))
	require.NoError(t, s.EnsureIndex(ctx, 2))
	assert.ErrorIs(t, s.EnsureIndex(ctx, 3), domain.ErrDimensionMismatch)
	assert.ErrorIs(t, s.EnsureIndex(ctx, 0), domain.ErrInvalidInput)

	err = s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1}, nil, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_UnknownFilterKeyMatchesNothing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", "doc1", 1, 0)}))

	matches, err := s.Query(ctx, []float32{1, 0}, domain.Filter{"source": "x"}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
