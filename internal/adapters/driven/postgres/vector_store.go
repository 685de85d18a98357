package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

const (
	defaultTopK       = 5
	readyPollInterval = 500 * time.Millisecond
)

// filterColumns maps metadata filter keys to their columns
var filterColumns = map[string]string{
	domain.MetaDocumentID: "document_id",
	domain.MetaType:       "type",
	domain.MetaChunkID:    "chunk_id",
}

// VectorStore implements driven.VectorStore on a pgvector table.
// Similarity is 1 - cosine distance, so scores match the in-memory store.
type VectorStore struct {
	db    *DB
	table string

	mu        sync.RWMutex
	dimension int
}

// NewVectorStore creates a store over table. EnsureIndex must run before Upsert.
func NewVectorStore(db *DB, table string) *VectorStore {
	if table == "" {
		table = DefaultTable
	}
	return &VectorStore{db: db, table: table}
}

// chunkRow is one row of the chunk table as returned by Query
type chunkRow struct {
	ID         string  `db:"id"`
	DocumentID string  `db:"document_id"`
	ChunkID    string  `db:"chunk_id"`
	Page       int     `db:"page"`
	Type       string  `db:"type"`
	Text       string  `db:"text"`
	Score      float64 `db:"score"`
}

// EnsureIndex creates the table and HNSW cosine index, then polls until
// Postgres reports the index valid and ready.
func (s *VectorStore) EnsureIndex(ctx context.Context, dimension int) error {
	if err := s.db.InitSchema(ctx, s.table, dimension); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	existing, err := s.columnDimension(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if existing != dimension {
		return fmt.Errorf("%w: table %s has %d, requested %d", domain.ErrDimensionMismatch, s.table, existing, dimension)
	}

	for {
		ready, err := s.indexReady(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if ready {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: index not ready: %v", domain.ErrStoreUnavailable, ctx.Err())
		case <-time.After(readyPollInterval):
		}
	}

	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

// columnDimension reads the declared size of the embedding column
func (s *VectorStore) columnDimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.GetContext(ctx, &dim, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'
	`, s.table)
	return dim, err
}

func (s *VectorStore) indexReady(ctx context.Context) (bool, error) {
	var ready bool
	err := s.db.GetContext(ctx, &ready, `
		SELECT indisvalid AND indisready FROM pg_index
		WHERE indexrelid = to_regclass($1)
	`, s.table+"_embedding_idx")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return ready, err
}

// Upsert writes records in one transaction; an existing id is overwritten
func (s *VectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	s.mu.RLock()
	dimension := s.dimension
	s.mu.RUnlock()

	if dimension == 0 {
		return fmt.Errorf("%w: index not created", domain.ErrStoreUnavailable)
	}
	for _, r := range records {
		if len(r.Vector) != dimension {
			return fmt.Errorf("%w: record %s has %d, want %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), dimension)
		}
	}
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_id, page, type, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_id = EXCLUDED.chunk_id,
			page = EXCLUDED.page,
			type = EXCLUDED.type,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`, s.table)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.ID,
				r.Metadata.DocumentID,
				r.Metadata.ChunkID,
				r.Metadata.Page,
				string(r.Metadata.Type),
				r.Metadata.Text,
				pgvector.NewVector(r.Vector),
			)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Query returns up to topK rows passing filter, nearest first
func (s *VectorStore) Query(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]*domain.Match, error) {
	s.mu.RLock()
	dimension := s.dimension
	s.mu.RUnlock()

	if dimension != 0 && len(vector) != dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), dimension)
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	where, args, ok := buildFilter(filter, 2)
	if !ok {
		// unknown filter keys can never match
		return nil, nil
	}

	// Ordering by distance alone keeps the HNSW index usable. The planner
	// may still prefer the document_id index for selective filters.
	query := fmt.Sprintf(`
		SELECT id, document_id, chunk_id, page, type, text,
			1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT %d
	`, s.table, where, topK)

	var rows []chunkRow
	params := append([]any{pgvector.NewVector(vector)}, args...)
	if err := s.db.SelectContext(ctx, &rows, query, params...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	matches := make([]*domain.Match, len(rows))
	for i, row := range rows {
		matches[i] = &domain.Match{
			ID:    row.ID,
			Score: row.Score,
			Metadata: domain.ChunkMetadata{
				DocumentID: row.DocumentID,
				Text:       row.Text,
				Page:       row.Page,
				Type:       domain.ChunkType(row.Type),
				ChunkID:    row.ChunkID,
			},
		}
	}
	rankMatches(matches)
	return matches, nil
}

// rankMatches orders matches by score, breaking ties by id so equal
// scores come back in a stable order.
func rankMatches(matches []*domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}

// buildFilter renders filter as a WHERE clause with placeholders numbered
// from first. ok is false if a key has no column.
func buildFilter(filter domain.Filter, first int) (where string, args []any, ok bool) {
	if len(filter) == 0 {
		return "", nil, true
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for i, key := range keys {
		column, known := filterColumns[key]
		if !known {
			return "", nil, false
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", column, first+i))
		args = append(args, filter[key])
	}
	return "WHERE " + strings.Join(conds, " AND "), args, true
}

// HealthCheck verifies the database is reachable
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying pool
func (s *VectorStore) Close() error {
	return s.db.Close()
}
