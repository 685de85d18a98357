package driving

import (
	"context"
)

// IngestionService indexes policy documents
type IngestionService interface {
	// Ingest fetches, chunks, embeds and stores the document behind locator
	// unless it is already indexed. Idempotent: the same locator always
	// yields the same document id, and concurrent calls do not duplicate chunks.
	Ingest(ctx context.Context, locator string) (documentID string, err error)
}
