package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/policyqa/internal/chunker"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ensure IngestionService implements driving.IngestionService
var _ driving.IngestionService = (*IngestionService)(nil)

const (
	ingestLockPrefix  = "ingest:"
	lockRetryInitial  = 100 * time.Millisecond
	lockRetryMaxDelay = 2 * time.Second
)

// IngestionService coordinates the document ingestion pipeline:
//  1. Derive the document id from the locator
//  2. Skip if the store holds the document's completion marker
//  3. Take the per-document lock, keep it refreshed and check again
//  4. Fetch, extract and chunk the document
//  5. Embed and upsert chunks in parallel batches
//  6. Upsert the completion marker last
//
// A failed run leaves no marker, so the next caller ingests again and
// overwrites the partial vectors by their positional ids.
type IngestionService struct {
	fetcher   driven.DocumentFetcher
	extractor driven.PDFExtractor
	chunker   *chunker.Chunker
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	lock      driven.DistributedLock
	settings  domain.PipelineSettings
	timeouts  Timeouts
	logger    *slog.Logger
}

// IngestionConfig holds dependencies for IngestionService.
type IngestionConfig struct {
	Fetcher   driven.DocumentFetcher
	Extractor driven.PDFExtractor
	Chunker   *chunker.Chunker // defaults to one built from Settings
	Embedder  driven.EmbeddingService
	Store     driven.VectorStore
	Lock      driven.DistributedLock
	Settings  domain.PipelineSettings
	Timeouts  Timeouts
	Logger    *slog.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionConfig) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := cfg.Settings
	defaults := domain.DefaultPipelineSettings()
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaults.BatchSize
	}
	if settings.BatchConcurrency <= 0 {
		settings.BatchConcurrency = defaults.BatchConcurrency
	}
	if settings.MetadataTextCap <= 0 {
		settings.MetadataTextCap = defaults.MetadataTextCap
	}

	c := cfg.Chunker
	if c == nil {
		c = chunker.New(chunker.ConfigFromSettings(settings))
	}

	return &IngestionService{
		fetcher:   cfg.Fetcher,
		extractor: cfg.Extractor,
		chunker:   c,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		lock:      cfg.Lock,
		settings:  settings,
		timeouts:  cfg.Timeouts.withDefaults(),
		logger:    logger,
	}
}

// Ingest indexes the document behind locator unless it is already present
// and returns its document id either way.
func (s *IngestionService) Ingest(ctx context.Context, locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: document locator is required", domain.ErrInvalidInput)
	}

	documentID := domain.Fingerprint(locator)
	logger := s.logger.With("document_id", documentID)

	if s.isComplete(ctx, documentID) {
		logger.Debug("document already indexed")
		return documentID, nil
	}

	lockName := ingestLockPrefix + documentID
	if err := s.acquire(ctx, lockName); err != nil {
		return "", err
	}
	defer s.release(ctx, lockName)

	// Another caller may have finished while we waited for the lock
	if s.isComplete(ctx, documentID) {
		logger.Info("document indexed by concurrent ingestion")
		return documentID, nil
	}

	workCtx, stop := s.holdLock(ctx, lockName)
	defer stop()

	startTime := time.Now()
	logger.Info("starting ingestion", "locator", locator)

	chunks, err := s.load(workCtx, locator)
	if err != nil {
		err = lockLostCause(workCtx, err)
		logger.Error("ingestion failed", "error", err)
		return "", err
	}
	for _, c := range chunks {
		c.DocumentID = documentID
	}

	if len(chunks) == 0 {
		logger.Warn("document produced no chunks")
		return documentID, nil
	}

	if err := s.index(workCtx, documentID, chunks); err != nil {
		err = lockLostCause(workCtx, err)
		logger.Error("ingestion failed, document left incomplete", "error", err)
		return "", err
	}

	if err := s.markComplete(workCtx, documentID); err != nil {
		err = lockLostCause(workCtx, err)
		logger.Error("ingestion failed", "error", err)
		return "", err
	}

	logger.Info("ingestion completed",
		"chunks", len(chunks),
		"duration_seconds", time.Since(startTime).Seconds(),
	)
	return documentID, nil
}

// load fetches and extracts the document and splits it into chunks.
func (s *IngestionService) load(ctx context.Context, locator string) ([]*domain.Chunk, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeouts.Fetch)
	data, err := s.fetcher.Fetch(fetchCtx, locator)
	cancel()
	if err != nil {
		return nil, wrapAs(domain.ErrFetch, "failed to fetch document", err)
	}

	pages, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, wrapAs(domain.ErrExtraction, "failed to extract document", err)
	}
	s.logger.Debug("document extracted", "extractor", s.extractor.Name(), "pages", len(pages))

	return s.chunker.Chunk(pages), nil
}

// index embeds and upserts chunks in batches, with at most
// BatchConcurrency batches in flight. Vector ids are positional so a
// retried batch overwrites its own vectors.
func (s *IngestionService) index(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.BatchConcurrency)

	size := s.settings.BatchSize
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batch := chunks[start:end]
		offset := start

		g.Go(func() error {
			return s.indexBatch(gctx, documentID, offset, batch)
		})
	}

	return g.Wait()
}

func (s *IngestionService) indexBatch(ctx context.Context, documentID string, offset int, batch []*domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	vectors, err := s.embedder.Embed(embedCtx, texts)
	cancel()
	if err != nil {
		return wrapAs(domain.ErrEmbedding, fmt.Sprintf("failed to embed batch at %d", offset), err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(batch))
	}

	records := make([]domain.VectorRecord, len(batch))
	for i, c := range batch {
		records[i] = domain.VectorRecord{
			ID:     domain.VectorID(documentID, offset+i),
			Vector: vectors[i],
			Metadata: domain.ChunkMetadata{
				DocumentID: documentID,
				Text:       truncateText(c.Text, s.settings.MetadataTextCap),
				Page:       c.Page,
				Type:       c.Type,
				ChunkID:    c.ID,
			},
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	if err := s.store.Upsert(storeCtx, records); err != nil {
		return wrapAs(domain.ErrStoreUnavailable, fmt.Sprintf("failed to upsert batch at %d", offset), err)
	}

	s.logger.Debug("batch indexed", "document_id", documentID, "batch", offset/s.settings.BatchSize, "chunks", len(batch))
	return nil
}

// markComplete upserts the completion marker. It is written only after
// every batch succeeded.
func (s *IngestionService) markComplete(ctx context.Context, documentID string) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	marker := domain.VectorRecord{
		ID:     domain.MarkerID(documentID),
		Vector: neutralVector(s.embedder.Dimensions()),
		Metadata: domain.ChunkMetadata{
			DocumentID: documentID,
			Type:       domain.ChunkTypeMarker,
			ChunkID:    string(domain.ChunkTypeMarker),
		},
	}
	if err := s.store.Upsert(storeCtx, []domain.VectorRecord{marker}); err != nil {
		return wrapAs(domain.ErrStoreUnavailable, "failed to write completion marker", err)
	}
	return nil
}

// isComplete reports whether the store holds the completion marker for
// documentID. Chunks without a marker belong to an unfinished run. Any
// failure counts as absent so the caller re-ingests.
func (s *IngestionService) isComplete(ctx context.Context, documentID string) bool {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	filter := domain.Filter{
		domain.MetaDocumentID: documentID,
		domain.MetaType:       string(domain.ChunkTypeMarker),
	}
	matches, err := s.store.Query(storeCtx, neutralVector(s.embedder.Dimensions()), filter, 1)
	if err != nil {
		s.logger.Warn("presence check failed, assuming absent", "document_id", documentID, "error", err)
		return false
	}
	return len(matches) > 0
}

// acquire takes the named lock, retrying with backoff until LockWait elapses.
func (s *IngestionService) acquire(ctx context.Context, name string) error {
	deadline := time.Now().Add(s.timeouts.LockWait)
	delay := lockRetryInitial

	for {
		acquired, err := s.lock.Acquire(ctx, name, s.timeouts.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		if acquired {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrLockTimeout, name)
		}

		timer := time.NewTimer(min(delay, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, lockRetryMaxDelay)
	}
}

func (s *IngestionService) release(ctx context.Context, name string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.Store)
	defer cancel()

	if err := s.lock.Release(releaseCtx, name); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to release lock", "lock", name, "error", err)
	}
}

// holdLock refreshes the named lock every third of its TTL until the
// returned stop func is called. When a refresh fails the returned context
// is cancelled with an ErrLockLost cause, so no work continues once
// another caller may own the document.
func (s *IngestionService) holdLock(ctx context.Context, name string) (context.Context, func()) {
	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	interval := max(s.timeouts.LockTTL/3, time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-lockCtx.Done():
				return
			case <-ticker.C:
			}

			extendCtx, cancelExtend := context.WithTimeout(lockCtx, s.timeouts.Store)
			err := s.lock.Extend(extendCtx, name, s.timeouts.LockTTL)
			cancelExtend()
			if err != nil {
				s.logger.Error("lock refresh failed, aborting ingestion", "lock", name, "error", err)
				cancel(wrapAs(domain.ErrLockLost, "lock "+name, err))
				return
			}
		}
	}()

	return lockCtx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

// lockLostCause prefers the lock-loss cause over the cancellation error
// it produced further down the pipeline.
func lockLostCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, domain.ErrLockLost) {
		return cause
	}
	return err
}

// neutralVector is a unit vector with equal components. Only the filter
// matters for presence checks; a zero vector has no cosine similarity.
func neutralVector(dim int) []float32 {
	if dim <= 0 {
		dim = 1
	}
	v := make([]float32, dim)
	x := float32(1 / math.Sqrt(float64(dim)))
	for i := range v {
		v[i] = x
	}
	return v
}

// truncateText keeps the first limit characters of s. Stored metadata is
// lossy for chunks longer than the cap.
func truncateText(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
