package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/extractor"
)

// Ensure QueryService implements driving.QueryService
var _ driving.QueryService = (*QueryService)(nil)

// sourceCount is how many top matches are reported as answer sources
const sourceCount = 2

// QueryService retrieves context for a question and extracts an answer.
// It only reads from the store and is safe for concurrent use.
type QueryService struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	extractor *extractor.Extractor
	settings  domain.PipelineSettings
	timeouts  Timeouts
	logger    *slog.Logger
}

// QueryConfig holds dependencies for QueryService.
type QueryConfig struct {
	Embedder  driven.EmbeddingService
	Store     driven.VectorStore
	Extractor *extractor.Extractor // defaults to one using Settings.ContextChunks
	Settings  domain.PipelineSettings
	Timeouts  Timeouts
	Logger    *slog.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(cfg QueryConfig) *QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := cfg.Settings
	defaults := domain.DefaultPipelineSettings()
	if settings.TopK <= 0 {
		settings.TopK = defaults.TopK
	}
	if settings.ContextChunks <= 0 {
		settings.ContextChunks = defaults.ContextChunks
	}

	ex := cfg.Extractor
	if ex == nil {
		ex = extractor.New(settings.ContextChunks)
	}

	return &QueryService{
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		extractor: ex,
		settings:  settings,
		timeouts:  cfg.Timeouts.withDefaults(),
		logger:    logger,
	}
}

// Retrieve embeds the expanded question once and runs a single filtered
// similarity search. Results keep the store's ordering. One extra match is
// requested so the document's completion marker never costs a chunk.
func (s *QueryService) Retrieve(ctx context.Context, question, documentID string) ([]*domain.Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	vector, err := s.embedder.EmbedQuery(embedCtx, ExpandQuery(question))
	cancel()
	if err != nil {
		return nil, wrapAs(domain.ErrEmbedding, "failed to embed question", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	filter := domain.Filter{domain.MetaDocumentID: documentID}
	matches, err := s.store.Query(storeCtx, vector, filter, s.settings.TopK+1)
	if err != nil {
		return nil, wrapAs(domain.ErrStoreUnavailable, "failed to query vector store", err)
	}
	return withoutMarkers(matches, s.settings.TopK), nil
}

// withoutMarkers drops completion markers and keeps at most topK matches
func withoutMarkers(matches []*domain.Match, topK int) []*domain.Match {
	out := make([]*domain.Match, 0, min(len(matches), topK))
	for _, m := range matches {
		if m.Metadata.Type == domain.ChunkTypeMarker {
			continue
		}
		if len(out) == topK {
			break
		}
		out = append(out, m)
	}
	return out
}

// Answer retrieves context for question and extracts an answer from it.
func (s *QueryService) Answer(ctx context.Context, question, documentID string) (*domain.AnswerResult, error) {
	matches, err := s.Retrieve(ctx, question, documentID)
	if err != nil {
		return nil, err
	}

	n := min(len(matches), s.settings.ContextChunks)
	contextChunks := make([]string, 0, n)
	for _, m := range matches[:n] {
		contextChunks = append(contextChunks, m.Metadata.Text)
	}

	confidence := domain.Confidence(matches)
	result := &domain.AnswerResult{
		Question:      question,
		Answer:        s.extractor.Extract(question, contextChunks),
		Confidence:    confidence,
		LowConfidence: confidence < s.settings.ConfidenceThreshold*100,
		Sources:       sources(matches),
	}

	s.logger.Debug("question answered",
		"document_id", documentID,
		"intent", extractor.Classify(question).String(),
		"matches", len(matches),
		"confidence", confidence,
	)
	return result, nil
}

func sources(matches []*domain.Match) []domain.Source {
	n := min(len(matches), sourceCount)
	out := make([]domain.Source, 0, n)
	for _, m := range matches[:n] {
		out = append(out, domain.Source{
			Page:  m.Metadata.Page,
			Type:  m.Metadata.Type,
			Score: m.Score,
		})
	}
	return out
}
