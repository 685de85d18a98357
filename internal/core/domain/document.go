package domain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// FingerprintLength is the number of hex characters kept from the source hash
const FingerprintLength = 12

// ChunkType distinguishes prose chunks from table chunks
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeTable ChunkType = "table"

	// ChunkTypeMarker tags the record written once every chunk of a
	// document is stored. It carries no text and is never retrieved.
	ChunkTypeMarker ChunkType = "marker"
)

// Chunk represents a retrievable unit of a policy document.
// Chunks are append-only once stored.
type Chunk struct {
	ID         string    `json:"id"` // text_{n} or table_{page}_{index}
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Page       int       `json:"page"` // 1-based
	Type       ChunkType `json:"type"`
}

// Table is a grid of cell strings. Missing cells are empty strings.
type Table [][]string

// Page holds what the PDF extractor found on one page
type Page struct {
	Number int     `json:"number"` // 1-based
	Text   string  `json:"text"`
	Tables []Table `json:"tables,omitempty"`
}

// Fingerprint derives the stable document id from a source locator.
// The same locator always maps to the same id.
func Fingerprint(locator string) string {
	sum := blake2b.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// MarkerID returns the store id of a document's completion marker
func MarkerID(documentID string) string {
	return documentID + "_complete"
}

// VectorID returns the store id for the index-th chunk of a document
func VectorID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}
