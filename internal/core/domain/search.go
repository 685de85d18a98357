package domain

// Filter is an exact-match metadata filter applied by the vector store
type Filter map[string]string

// Metadata keys stored alongside every vector
const (
	MetaDocumentID = "document_id"
	MetaText       = "text"
	MetaPage       = "page"
	MetaType       = "type"
	MetaChunkID    = "chunk_id"
)

// ChunkMetadata is persisted next to each vector.
// Text is truncated to the configured storage cap, so it may be shorter than the chunk.
type ChunkMetadata struct {
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Page       int       `json:"page"`
	Type       ChunkType `json:"type"`
	ChunkID    string    `json:"chunk_id"`
}

// VectorRecord is one upsert unit
type VectorRecord struct {
	ID       string        `json:"id"`
	Vector   []float32     `json:"vector"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Match is a retrieval result with its similarity score
type Match struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Matches reports whether the metadata satisfies every key of the filter
func (f Filter) Matches(meta ChunkMetadata) bool {
	for key, want := range f {
		var got string
		switch key {
		case MetaDocumentID:
			got = meta.DocumentID
		case MetaType:
			got = string(meta.Type)
		case MetaChunkID:
			got = meta.ChunkID
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}
