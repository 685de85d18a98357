package domain

// AIProvider identifies the embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// RequiresAPIKey returns true if the provider needs an API key
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsValid returns true for known providers
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama:
		return true
	}
	return false
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`

	// Dimension pins the vector size; every vector in one store shares it
	Dimension int `json:"dimension"`

	// FallbackModels are tried in order when the provider rejects Model
	FallbackModels []string `json:"fallback_models,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// PipelineSettings holds the chunking and retrieval knobs
type PipelineSettings struct {
	ChunkSize           int     `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap        int     `json:"chunk_overlap" yaml:"chunk_overlap"` // sentences carried into the next chunk
	TopK                int     `json:"top_k" yaml:"top_k"`
	ContextChunks       int     `json:"context_chunks" yaml:"context_chunks"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	MaxTableRows        int     `json:"max_table_rows" yaml:"max_table_rows"`
	MinChunkLength      int     `json:"min_chunk_length" yaml:"min_chunk_length"`
	MetadataTextCap     int     `json:"metadata_text_cap" yaml:"metadata_text_cap"`
	BatchSize           int     `json:"batch_size" yaml:"batch_size"`
	BatchConcurrency    int     `json:"batch_concurrency" yaml:"batch_concurrency"`
}

// DefaultPipelineSettings returns the defaults tuned for insurance policy PDFs
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChunkSize:           512,
		ChunkOverlap:        1,
		TopK:                5,
		ContextChunks:       3,
		ConfidenceThreshold: 0.7,
		MaxTableRows:        15,
		MinChunkLength:      50,
		MetadataTextCap:     1000,
		BatchSize:           50,
		BatchConcurrency:    2,
	}
}
