package domain

// SearchResult is one ranked hit from a semantic book search.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is cosine similarity, higher is more similar.
	Score float64

	// Title is the matched chunk's title, if any.
	Title string

	// Snippet is the content snapshot stored alongside the vector.
	Snippet string
}
