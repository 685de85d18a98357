package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/chunker"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven/mocks"
)

const testLocator = "https://example.com/policy.pdf"

var testPages = []domain.Page{
	{Number: 1, Text: "A grace period of 30 days is allowed for premium payment. Claims are settled within 30 days."},
	{
		Number: 2,
		Text:   "There is a waiting period of 24 months for pre-existing diseases.",
		Tables: []domain.Table{{{"Plan", "Sum Insured"}, {"Gold", "500000"}}},
	},
}

type ingestionFixture struct {
	service   *IngestionService
	fetcher   *mocks.MockFetcher
	extractor *mocks.MockPDFExtractor
	embedder  *mocks.MockEmbeddingService
	store     *mocks.MockVectorStore
	lock      *mocks.MockDistributedLock
}

func newIngestionFixture(t *testing.T, mutate func(cfg *IngestionConfig)) *ingestionFixture {
	t.Helper()

	f := &ingestionFixture{
		fetcher:   mocks.NewMockFetcher([]byte("%PDF-1.7")),
		extractor: mocks.NewMockPDFExtractor(testPages...),
		embedder:  mocks.NewMockEmbeddingService(),
		store:     mocks.NewMockVectorStore(),
		lock:      mocks.NewMockDistributedLock(),
	}

	cfg := IngestionConfig{
		Fetcher:   f.fetcher,
		Extractor: f.extractor,
		Embedder:  f.embedder,
		Store:     f.store,
		Lock:      f.lock,
		Settings:  domain.DefaultPipelineSettings(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f.service = NewIngestionService(cfg)
	return f
}

// chunkRecords drops completion markers from stored records
func chunkRecords(records []domain.VectorRecord) []domain.VectorRecord {
	var out []domain.VectorRecord
	for _, r := range records {
		if r.Metadata.Type != domain.ChunkTypeMarker {
			out = append(out, r)
		}
	}
	return out
}

func hasMarker(store *mocks.MockVectorStore, documentID string) bool {
	for _, r := range store.Records() {
		if r.ID == domain.MarkerID(documentID) {
			return true
		}
	}
	return false
}

func TestIngest_IndexesDocument(t *testing.T) {
	f := newIngestionFixture(t, nil)

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)
	assert.Equal(t, domain.Fingerprint(testLocator), docID)

	records := chunkRecords(f.store.Records())
	require.Len(t, records, 2) // one table chunk, one text chunk

	ids := make(map[string]bool)
	for _, r := range records {
		ids[r.ID] = true
		assert.Equal(t, docID, r.Metadata.DocumentID)
		assert.Len(t, r.Vector, 384)
		assert.NotEmpty(t, r.Metadata.Text)
	}
	assert.True(t, ids[docID+"_0"])
	assert.True(t, ids[docID+"_1"])

	assert.Equal(t, domain.ChunkTypeTable, records[0].Metadata.Type)
	assert.Equal(t, "table_2_0", records[0].Metadata.ChunkID)
	assert.Equal(t, 2, records[0].Metadata.Page)
	assert.Equal(t, "text_0", records[1].Metadata.ChunkID)
	assert.False(t, f.lock.IsHeld(ingestLockPrefix+docID))

	all := f.store.Records()
	require.Len(t, all, 3)
	marker := all[2]
	assert.Equal(t, domain.MarkerID(docID), marker.ID, "marker is written last")
	assert.Equal(t, domain.ChunkTypeMarker, marker.Metadata.Type)
	assert.Equal(t, docID, marker.Metadata.DocumentID)
	assert.Len(t, marker.Vector, 384)
}

func TestIngest_IsIdempotent(t *testing.T) {
	f := newIngestionFixture(t, nil)
	ctx := context.Background()

	first, err := f.service.Ingest(ctx, testLocator)
	require.NoError(t, err)
	stored := len(f.store.Records())

	second, err := f.service.Ingest(ctx, testLocator)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.fetcher.FetchCount(testLocator))
	assert.Len(t, f.store.Records(), stored)
	assert.Equal(t, 2, f.store.UpsertCalls()) // one chunk batch, one marker
}

func TestIngest_ConcurrentCallersIngestOnce(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.fetcher.FetchFn = func(string) ([]byte, error) {
		time.Sleep(50 * time.Millisecond)
		return []byte("%PDF"), nil
	}

	const callers = 6
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = f.service.Ingest(context.Background(), testLocator)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.fetcher.FetchCount(testLocator))
	assert.Len(t, chunkRecords(f.store.Records()), 2)
	assert.True(t, hasMarker(f.store, ids[0]))
}

func TestIngest_PresenceCheckFailureReingests(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.store.QueryFn = func([]float32, domain.Filter, int) ([]*domain.Match, error) {
		return nil, errors.New("connection refused")
	}

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)
	assert.NotEmpty(t, docID)
	assert.Equal(t, 1, f.fetcher.FetchCount(testLocator))
	assert.Len(t, chunkRecords(f.store.Records()), 2)
}

func TestIngest_PresenceQueryLooksForMarker(t *testing.T) {
	f := newIngestionFixture(t, nil)

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)

	want := domain.Filter{
		domain.MetaDocumentID: docID,
		domain.MetaType:       string(domain.ChunkTypeMarker),
	}
	queries := f.store.Queries()
	require.NotEmpty(t, queries)
	for _, q := range queries {
		assert.Equal(t, want, q.Filter)
		assert.Equal(t, 1, q.TopK)
		assert.Len(t, q.Vector, 384)
	}
}

func TestIngest_FetchErrorPropagates(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.fetcher.FetchFn = func(string) ([]byte, error) {
		return nil, fmt.Errorf("%w: status 404", domain.ErrFetch)
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Equal(t, 0, f.store.UpsertCalls())
	assert.False(t, f.lock.IsHeld(ingestLockPrefix+domain.Fingerprint(testLocator)))
}

func TestIngest_UntypedFetchErrorIsWrapped(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.fetcher.FetchFn = func(string) ([]byte, error) {
		return nil, context.DeadlineExceeded
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngest_ExtractionError(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.extractor.ExtractFn = func([]byte) ([]domain.Page, error) {
		return nil, errors.New("corrupt xref table")
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestIngest_EmbeddingError(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.embedder.EmbedFn = func([]string) ([][]float32, error) {
		return nil, errors.New("model not loaded")
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 0, f.store.UpsertCalls())
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.embedder.EmbedFn = func([]string) ([][]float32, error) {
		return [][]float32{{0.1}}, nil
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestIngest_UpsertError(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.store.UpsertFn = func([]domain.VectorRecord) error {
		return errors.New("disk full")
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestIngest_TruncatesStoredText(t *testing.T) {
	long := strings.Repeat("é", 40) + "."
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Settings.MetadataTextCap = 10
	})
	f.extractor.Pages = []domain.Page{{Number: 1, Text: long}}

	_, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)

	records := chunkRecords(f.store.Records())
	require.Len(t, records, 1)
	assert.Equal(t, 10, utf8.RuneCountInString(records[0].Metadata.Text))
	assert.Equal(t, strings.Repeat("é", 10), records[0].Metadata.Text)

	// the embedding sees the full chunk
	assert.Contains(t, f.embedder.Calls(), long)
}

func TestIngest_BatchesUpserts(t *testing.T) {
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Settings.BatchSize = 2
		cfg.Settings.BatchConcurrency = 2
		cfg.Chunker = chunker.New(chunker.Config{ChunkSize: 10, Overlap: 0})
	})
	f.extractor.Pages = []domain.Page{{
		Number: 1,
		Text:   fiveSentences,
	}}

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)

	assert.Equal(t, 4, f.store.UpsertCalls()) // three batches, one marker

	byID := make(map[string]domain.VectorRecord)
	for _, r := range chunkRecords(f.store.Records()) {
		byID[r.ID] = r
	}
	require.Len(t, byID, 5)
	for i := 0; i < 5; i++ {
		r, ok := byID[domain.VectorID(docID, i)]
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("text_%d", i), r.Metadata.ChunkID)
	}
}

// fiveSentences chunks into five text chunks with a 10 character budget
const fiveSentences = "First sentence here. Second sentence here. Third sentence here. Fourth sentence here. Fifth sentence here."

func TestIngest_FailedBatchIsRepairedOnRetry(t *testing.T) {
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Settings.BatchSize = 2
		cfg.Settings.BatchConcurrency = 1
		cfg.Chunker = chunker.New(chunker.Config{ChunkSize: 10, Overlap: 0})
	})
	f.extractor.Pages = []domain.Page{{Number: 1, Text: fiveSentences}}

	var mu sync.Mutex
	embedCalls := 0
	f.embedder.EmbedFn = func(texts []string) ([][]float32, error) {
		mu.Lock()
		embedCalls++
		call := embedCalls
		mu.Unlock()

		if call == 2 {
			return nil, errors.New("transient embed failure")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = neutralVector(384)
		}
		return out, nil
	}

	ctx := context.Background()
	_, err := f.service.Ingest(ctx, testLocator)
	require.ErrorIs(t, err, domain.ErrEmbedding)

	docID := domain.Fingerprint(testLocator)
	assert.NotEmpty(t, chunkRecords(f.store.Records()), "earlier batches were stored")
	assert.Less(t, len(chunkRecords(f.store.Records())), 5)
	assert.False(t, hasMarker(f.store, docID), "a failed run must not look complete")
	assert.False(t, f.lock.IsHeld(ingestLockPrefix+docID))

	got, err := f.service.Ingest(ctx, testLocator)
	require.NoError(t, err)
	assert.Equal(t, docID, got)
	assert.Equal(t, 2, f.fetcher.FetchCount(testLocator), "retry must fetch the document again")

	records := chunkRecords(f.store.Records())
	require.Len(t, records, 5)
	ids := make(map[string]bool)
	for _, r := range records {
		ids[r.ID] = true
	}
	for i := 0; i < 5; i++ {
		assert.True(t, ids[domain.VectorID(docID, i)], "chunk %d missing after retry", i)
	}
	assert.True(t, hasMarker(f.store, docID))

	// now complete: a third call takes the fast path
	_, err = f.service.Ingest(ctx, testLocator)
	require.NoError(t, err)
	assert.Equal(t, 2, f.fetcher.FetchCount(testLocator))
}

func TestIngest_ChunksWithoutMarkerAreReingested(t *testing.T) {
	f := newIngestionFixture(t, nil)
	docID := domain.Fingerprint(testLocator)

	// leftovers of a run that died before finishing
	require.NoError(t, f.store.Upsert(context.Background(), []domain.VectorRecord{{
		ID:       domain.VectorID(docID, 0),
		Vector:   neutralVector(384),
		Metadata: domain.ChunkMetadata{DocumentID: docID, Text: "stale", Type: domain.ChunkTypeTable},
	}}))

	_, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.FetchCount(testLocator))

	records := chunkRecords(f.store.Records())
	require.Len(t, records, 2)
	assert.NotEqual(t, "stale", records[0].Metadata.Text, "partial vectors are overwritten by id")
	assert.True(t, hasMarker(f.store, docID))
}

func TestIngest_MarkerWriteFailure(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.store.UpsertFn = func(records []domain.VectorRecord) error {
		if records[0].Metadata.Type == domain.ChunkTypeMarker {
			return errors.New("connection reset")
		}
		return nil
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "completion marker")
}

func TestIngest_RefreshesLockWhileWorking(t *testing.T) {
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Timeouts = Timeouts{LockTTL: 30 * time.Millisecond}
	})
	f.fetcher.FetchFn = func(string) ([]byte, error) {
		time.Sleep(100 * time.Millisecond)
		return []byte("%PDF"), nil
	}

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.lock.ExtendCalls(), 1)
	assert.True(t, hasMarker(f.store, docID))
	assert.False(t, f.lock.IsHeld(ingestLockPrefix+docID))
}

func TestIngest_LockLostAbortsIngestion(t *testing.T) {
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Timeouts = Timeouts{LockTTL: 30 * time.Millisecond}
	})
	f.lock.ExtendFn = func(name string, _ time.Duration) error {
		return fmt.Errorf("%w: %s", domain.ErrLockLost, name)
	}
	f.fetcher.FetchFn = func(string) ([]byte, error) {
		time.Sleep(100 * time.Millisecond)
		return []byte("%PDF"), nil
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockLost)
	assert.Equal(t, 0, f.store.UpsertCalls())
	assert.False(t, hasMarker(f.store, domain.Fingerprint(testLocator)))
}

func TestIngest_NoChunks(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.extractor.Pages = []domain.Page{{Number: 1, Text: "  "}}

	docID, err := f.service.Ingest(context.Background(), testLocator)
	require.NoError(t, err)
	assert.Equal(t, domain.Fingerprint(testLocator), docID)
	assert.Equal(t, 0, f.store.UpsertCalls())
}

func TestIngest_LockTimeout(t *testing.T) {
	f := newIngestionFixture(t, func(cfg *IngestionConfig) {
		cfg.Timeouts = Timeouts{LockWait: 150 * time.Millisecond}
	})
	f.lock.SetLockHeld(ingestLockPrefix+domain.Fingerprint(testLocator), time.Minute)

	_, err := f.service.Ingest(context.Background(), testLocator)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, 0, f.fetcher.FetchCount(testLocator))
	assert.Greater(t, f.lock.AcquireCalls(), 1)
}

func TestIngest_LockBackendError(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.lock.AcquireFn = func(string, time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}

	_, err := f.service.Ingest(context.Background(), testLocator)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, 0, f.fetcher.FetchCount(testLocator))
}

func TestIngest_ContextCancelledWhileWaitingForLock(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.lock.SetLockHeld(ingestLockPrefix+domain.Fingerprint(testLocator), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.service.Ingest(ctx, testLocator)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngest_EmptyLocator(t *testing.T) {
	f := newIngestionFixture(t, nil)

	_, err := f.service.Ingest(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNeutralVector(t *testing.T) {
	v := neutralVector(4)
	require.Len(t, v, 4)
	for _, x := range v {
		assert.InDelta(t, 0.5, x, 1e-6)
	}
	assert.Len(t, neutralVector(0), 1)
}
