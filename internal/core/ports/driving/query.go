package driving

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// QueryService answers questions against an indexed document
type QueryService interface {
	// Retrieve returns the ranked matches for question within one document
	Retrieve(ctx context.Context, question, documentID string) ([]*domain.Match, error)

	// Answer retrieves context and extracts an answer. Missing information
	// yields a "not found" answer, never an error.
	Answer(ctx context.Context, question, documentID string) (*domain.AnswerResult, error)
}

// RunRequest is the batch question payload: one document, many questions
type RunRequest struct {
	Documents string   `json:"documents" example:"https://example.com/policy.pdf"`
	Questions []string `json:"questions"`
}

// RunResult carries one AnswerResult per question, in input order
type RunResult struct {
	DocumentID string                 `json:"document_id"`
	Results    []*domain.AnswerResult `json:"results"`
}

// RunService ingests a document and answers every question against it
type RunService interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// Answers returns the answer strings in question order
func (r *RunResult) Answers() []string {
	answers := make([]string, len(r.Results))
	for i, res := range r.Results {
		answers[i] = res.Answer
	}
	return answers
}
