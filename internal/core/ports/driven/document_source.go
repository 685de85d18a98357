package driven

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// DocumentFetcher downloads raw document bytes from a source locator.
// Failures wrap domain.ErrFetch.
type DocumentFetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// PDFExtractor turns raw PDF bytes into per-page text and tables.
// Pages are 1-indexed; empty cells are normalised to "".
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) ([]domain.Page, error)

	// Name identifies the extractor in logs
	Name() string
}
