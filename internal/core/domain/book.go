package domain

import (
	"strings"
	"time"
)

// Book is the root of an organized note collection.
// A book exclusively owns its chapter tree: deleting a book cascades
// to chapters, sections and chunks, and purges their vectors.
type Book struct {
	// ID is the unique identifier for the book.
	ID string

	// Title is the human-readable book title.
	Title string

	// EmbeddingType selects the embedding provider for this book.
	// It is fixed at creation: all chunks in a book share one
	// embedding space and therefore one vector dimension.
	EmbeddingType EmbeddingType

	// Mode is how uploads are organized into chapters.
	// Fixed at creation, mutually exclusive with the other mode.
	Mode OrganizeMode

	// RawSource is the original uploaded content, kept for traceability.
	RawSource string

	// CreatedAt is when the book was created.
	CreatedAt time.Time

	// UpdatedAt is when the book was last modified.
	UpdatedAt time.Time
}

// Chapter groups sections within a book.
type Chapter struct {
	// ID is the unique identifier for the chapter.
	ID string

	// BookID links to the owning book.
	BookID string

	// Title is the chapter title.
	Title string

	// Position is the ordinal position within the book.
	Position int
}

// Section groups chunks within a chapter.
type Section struct {
	// ID is the unique identifier for the section.
	ID string

	// ChapterID links to the owning chapter.
	ChapterID string

	// Title is the section title.
	Title string

	// Position is the ordinal position within the chapter.
	Position int
}

// Chunk is the smallest addressable unit of organized text.
// Each chunk carries at most one embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// SectionID links to the owning section. Mutable on reorganize.
	SectionID string

	// Position is the ordinal position within the section.
	// Positions are dense: 0..n-1 with no gaps or collisions.
	Position int

	// Title is an optional chunk title.
	Title string

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation. Nil until embedded.
	Embedding []float32

	// WordCount is derived from Content.
	WordCount int

	// Embedded reports whether Embedding was generated for the
	// current Content. A content mutation clears it until the chunk
	// is re-embedded.
	Embedded bool

	// NextID links to the following chunk of the same source file.
	// Purely additive navigation metadata, empty for the last chunk.
	NextID string

	// CreatedAt is when the chunk was created.
	CreatedAt time.Time

	// UpdatedAt is when the chunk was last modified.
	UpdatedAt time.Time
}

// SetContent replaces the chunk content and invalidates the embedding.
// The chunk stays in the stale (not embedded) state until
// SetEmbedding is called.
func (c *Chunk) SetContent(content string) {
	c.Content = content
	c.WordCount = len(strings.Fields(content))
	c.Embedding = nil
	c.Embedded = false
	c.UpdatedAt = time.Now().UTC()
}

// SetEmbedding attaches an embedding generated for the current content.
func (c *Chunk) SetEmbedding(vector []float32) {
	c.Embedding = vector
	c.Embedded = len(vector) > 0
}
