package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetch indicates the source document could not be downloaded.
	// Not retried internally; surfaced to the caller as a request failure.
	ErrFetch = errors.New("document fetch failed")

	// ErrStoreUnavailable indicates the vector store could not be reached
	// or the index could not be created
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbedding indicates the embedding provider failed
	ErrEmbedding = errors.New("embedding failed")

	// ErrExtraction indicates the PDF could not be parsed at all
	ErrExtraction = errors.New("pdf extraction failed")

	// ErrLockTimeout indicates the per-document ingestion lock could not be acquired in time
	ErrLockTimeout = errors.New("ingestion lock timeout")

	// ErrLockLost indicates the ingestion lock expired or was taken over mid-ingestion
	ErrLockLost = errors.New("ingestion lock lost")

	// ErrInvalidProvider indicates an unknown embedding provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrDimensionMismatch indicates a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
