package domain

// EmbeddingType identifies an embedding provider.
// It is a closed enumeration: one EmbeddingService implementation
// exists per value, selected once at book creation.
type EmbeddingType string

// Supported embedding providers.
const (
	// EmbeddingTypeLocal is the built-in deterministic embedder.
	// No network access required.
	EmbeddingTypeLocal EmbeddingType = "local"

	// EmbeddingTypeOllama uses a local Ollama server.
	EmbeddingTypeOllama EmbeddingType = "ollama"

	// EmbeddingTypeOpenAI uses the OpenAI embeddings API.
	EmbeddingTypeOpenAI EmbeddingType = "openai"
)

// Valid reports whether t is a known embedding type.
func (t EmbeddingType) Valid() bool {
	switch t {
	case EmbeddingTypeLocal, EmbeddingTypeOllama, EmbeddingTypeOpenAI:
		return true
	}
	return false
}

// Collection returns the vector store collection name for this
// embedding type. Collections are partitioned per provider so that
// every collection holds vectors of a single dimension.
func (t EmbeddingType) Collection() string {
	return "chunks_" + string(t)
}

// OrganizeMode is how uploaded files are turned into chapters.
type OrganizeMode string

// Organization modes.
const (
	// OrganizeByFile creates one chapter per uploaded file.
	OrganizeByFile OrganizeMode = "file"

	// OrganizeByCluster pools all chunks and clusters them into
	// chapters by embedding similarity.
	OrganizeByCluster OrganizeMode = "cluster"
)

// Valid reports whether m is a known organization mode.
func (m OrganizeMode) Valid() bool {
	return m == OrganizeByFile || m == OrganizeByCluster
}

// Direction is a reorder direction for a chunk within its section.
type Direction string

// Reorder directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}
