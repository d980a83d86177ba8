// Package driving provides interfaces for user-facing entry points (primary/inbound ports).
package driving

import (
	"context"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// UploadFile is one raw input file for the pipeline.
type UploadFile struct {
	// Name is the original file name, used for chapter titles in
	// file mode.
	Name string

	// Content is the extracted text.
	Content string
}

// UploadOptions configures a pipeline run.
type UploadOptions struct {
	// Title is the book title. Defaults to the first file name.
	Title string

	// EmbeddingType selects the embedding provider. Required for a
	// new book; must match the existing book's type on re-upload.
	EmbeddingType domain.EmbeddingType

	// Mode selects the organization mode. Defaults to file mode.
	Mode domain.OrganizeMode

	// Intensity (0..1) controls delegated chunking. Zero keeps the
	// local rule-based chunker.
	Intensity float64

	// TargetBookID re-uploads into an existing book, replacing its
	// chapter tree and vectors.
	TargetBookID string

	// ClusterCount caps the number of chapters in cluster mode.
	// Zero selects a heuristic based on chunk count.
	ClusterCount int
}

// SectionStructure is a section with its ordered chunks.
type SectionStructure struct {
	Section domain.Section
	Chunks  []domain.Chunk
}

// ChapterStructure is a chapter with its ordered sections.
type ChapterStructure struct {
	Chapter  domain.Chapter
	Sections []SectionStructure
}

// BookStructure is a fully hydrated book tree.
type BookStructure struct {
	Book     domain.Book
	Chapters []ChapterStructure
}

// PipelineService runs the content-organization pipeline:
// chunk → embed → (cluster) → assemble → persist, plus the mutation
// paths that keep chunks and vectors consistent.
type PipelineService interface {
	// ProcessUpload organizes the given files into a book. Either
	// the whole book is persisted or the operation fails with no
	// publicly visible partial state.
	ProcessUpload(ctx context.Context, files []UploadFile, opts UploadOptions) (*BookStructure, error)

	// EditChunk replaces a chunk's content and synchronously
	// re-embeds it. On embedding failure the chunk keeps its
	// previous content and embedding.
	EditChunk(ctx context.Context, chunkID, newContent string) (*domain.Chunk, error)

	// DeleteChunk removes a chunk and its vector. The vector is
	// removed first; a vector removal failure aborts the delete.
	DeleteChunk(ctx context.Context, chunkID string) error

	// ReorderChunk swaps the chunk with its neighbour in the given
	// direction. A no-op at the section boundary.
	ReorderChunk(ctx context.Context, chunkID string, direction domain.Direction) error

	// GetBook returns the hydrated structure of a book.
	GetBook(ctx context.Context, bookID string) (*BookStructure, error)

	// ListBooks returns all books.
	ListBooks(ctx context.Context) ([]domain.Book, error)

	// DeleteBook removes a book, its tree and its vectors.
	DeleteBook(ctx context.Context, bookID string) error
}

// SearchService answers semantic queries over one book.
type SearchService interface {
	// SearchBook embeds the query with the book's provider and
	// returns up to topK chunks ranked by similarity.
	SearchBook(ctx context.Context, bookID, query string, topK int) ([]domain.SearchResult, error)
}
