package driven

import (
	"context"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// BookStore persists the book → chapter → section → chunk tree.
// Listings by parent are ordered by position.
type BookStore interface {
	// SaveBook stores or updates a book.
	SaveBook(ctx context.Context, book *domain.Book) error

	// GetBook retrieves a book by ID.
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// ListBooks returns all books.
	ListBooks(ctx context.Context) ([]domain.Book, error)

	// DeleteBook removes a book and cascades to its chapters,
	// sections and chunks.
	DeleteBook(ctx context.Context, id string) error

	// DeleteTree removes a book's chapters, sections and chunks but
	// keeps the book row. Used by the re-upload path.
	DeleteTree(ctx context.Context, bookID string) error

	// SaveChapter stores or updates a chapter.
	SaveChapter(ctx context.Context, chapter *domain.Chapter) error

	// SaveSection stores or updates a section.
	SaveSection(ctx context.Context, section *domain.Section) error

	// SaveChunks stores or updates chunks.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChapters returns a book's chapters ordered by position.
	GetChapters(ctx context.Context, bookID string) ([]domain.Chapter, error)

	// GetSections returns a chapter's sections ordered by position.
	GetSections(ctx context.Context, chapterID string) ([]domain.Section, error)

	// GetChunks returns a section's chunks ordered by position.
	GetChunks(ctx context.Context, sectionID string) ([]domain.Chunk, error)

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunkBook resolves the book owning a chunk.
	GetChunkBook(ctx context.Context, chunkID string) (*domain.Book, error)

	// ListBookChunks returns every chunk in a book, in chapter,
	// section, position order.
	ListBookChunks(ctx context.Context, bookID string) ([]domain.Chunk, error)

	// DeleteChunk removes a single chunk.
	DeleteChunk(ctx context.Context, id string) error
}
