package driven

import "context"

// VectorMetadata is the closed metadata structure stored with each
// vector record. A content snapshot travels with the vector so search
// hits can be rendered without a store round trip.
type VectorMetadata struct {
	// BookID is the owning book.
	BookID string

	// ChunkID is the owning chunk (also the record key).
	ChunkID string

	// Title is the chunk title at embed time.
	Title string

	// Content is the chunk content at embed time.
	Content string
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the cosine similarity, in [-1, 1]. Higher is more
	// similar.
	Score float64

	// Metadata is the record metadata captured at insert time.
	Metadata VectorMetadata
}

// VectorStore holds named collections of (id, vector, metadata)
// records and answers k-nearest-neighbour queries by cosine
// similarity. Collections are lazily materialized: operating on an
// unknown collection creates it. The first insert into a collection
// pins its dimension; any later vector of a different length is
// rejected with domain.ErrDimensionMismatch.
type VectorStore interface {
	// Add inserts or replaces the record for id.
	Add(ctx context.Context, collection, id string, vector []float32, meta VectorMetadata) error

	// Remove deletes the record for id and reports whether it
	// existed. Removing an absent id is not an error.
	Remove(ctx context.Context, collection, id string) (bool, error)

	// Search returns up to topK records ordered by descending
	// similarity to query. An empty collection yields an empty
	// result, not an error.
	Search(ctx context.Context, collection string, query []float32, topK int) ([]VectorHit, error)

	// Size returns the number of records in the collection.
	Size(ctx context.Context, collection string) (int, error)

	// Clear removes all records from the collection.
	Clear(ctx context.Context, collection string) error

	// Close releases resources.
	Close() error
}
