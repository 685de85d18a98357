package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ensure RunService implements driving.RunService
var _ driving.RunService = (*RunService)(nil)

// RunService ingests one document and answers a batch of questions
// against it, in input order.
type RunService struct {
	ingestion driving.IngestionService
	query     driving.QueryService
	logger    *slog.Logger
}

// NewRunService creates a new run service.
func NewRunService(ingestion driving.IngestionService, query driving.QueryService, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		ingestion: ingestion,
		query:     query,
		logger:    logger,
	}
}

// Run ingests req.Documents and answers every question. The first
// collaborator failure aborts the whole run.
func (s *RunService) Run(ctx context.Context, req driving.RunRequest) (*driving.RunResult, error) {
	if strings.TrimSpace(req.Documents) == "" {
		return nil, fmt.Errorf("%w: documents is required", domain.ErrInvalidInput)
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", domain.ErrInvalidInput)
	}

	startTime := time.Now()

	documentID, err := s.ingestion.Ingest(ctx, req.Documents)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.AnswerResult, 0, len(req.Questions))
	for i, question := range req.Questions {
		result, err := s.query.Answer(ctx, question, documentID)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		results = append(results, result)
	}

	s.logger.Info("run completed",
		"document_id", documentID,
		"questions", len(req.Questions),
		"duration_seconds", time.Since(startTime).Seconds(),
	)

	return &driving.RunResult{DocumentID: documentID, Results: results}, nil
}
