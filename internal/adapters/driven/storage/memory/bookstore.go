// Package memory provides in-memory storage adapters, used by tests
// and available as a throwaway backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

// Ensure BookStore implements the interface.
var _ driven.BookStore = (*BookStore)(nil)

// BookStore is an in-memory implementation of driven.BookStore.
type BookStore struct {
	mu       sync.RWMutex
	books    map[string]domain.Book
	chapters map[string]domain.Chapter
	sections map[string]domain.Section
	chunks   map[string]domain.Chunk
}

// NewBookStore creates a new in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{
		books:    make(map[string]domain.Book),
		chapters: make(map[string]domain.Chapter),
		sections: make(map[string]domain.Section),
		chunks:   make(map[string]domain.Chunk),
	}
}

// SaveBook stores or updates a book.
func (s *BookStore) SaveBook(_ context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.ID] = *book
	return nil
}

// GetBook retrieves a book by ID.
func (s *BookStore) GetBook(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

// ListBooks returns all books.
func (s *BookStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	books := make([]domain.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].CreatedAt.Before(books[j].CreatedAt)
	})
	return books, nil
}

// DeleteBook removes a book and cascades to its tree.
func (s *BookStore) DeleteBook(ctx context.Context, id string) error {
	if err := s.DeleteTree(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	return nil
}

// DeleteTree removes a book's chapters, sections and chunks.
func (s *BookStore) DeleteTree(_ context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chapterID, chapter := range s.chapters {
		if chapter.BookID != bookID {
			continue
		}
		for sectionID, section := range s.sections {
			if section.ChapterID != chapterID {
				continue
			}
			for chunkID, chunk := range s.chunks {
				if chunk.SectionID == sectionID {
					delete(s.chunks, chunkID)
				}
			}
			delete(s.sections, sectionID)
		}
		delete(s.chapters, chapterID)
	}
	return nil
}

// SaveChapter stores or updates a chapter.
func (s *BookStore) SaveChapter(_ context.Context, chapter *domain.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[chapter.ID] = *chapter
	return nil
}

// SaveSection stores or updates a section.
func (s *BookStore) SaveSection(_ context.Context, section *domain.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[section.ID] = *section
	return nil
}

// SaveChunks stores or updates chunks.
func (s *BookStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetChapters returns a book's chapters ordered by position.
func (s *BookStore) GetChapters(_ context.Context, bookID string) ([]domain.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chapters []domain.Chapter
	for _, chapter := range s.chapters {
		if chapter.BookID == bookID {
			chapters = append(chapters, chapter)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].Position < chapters[j].Position
	})
	return chapters, nil
}

// GetSections returns a chapter's sections ordered by position.
func (s *BookStore) GetSections(_ context.Context, chapterID string) ([]domain.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sections []domain.Section
	for _, section := range s.sections {
		if section.ChapterID == chapterID {
			sections = append(sections, section)
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})
	return sections, nil
}

// GetChunks returns a section's chunks ordered by position.
func (s *BookStore) GetChunks(_ context.Context, sectionID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.SectionID == sectionID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})
	return chunks, nil
}

// GetChunk retrieves a chunk by ID.
func (s *BookStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// GetChunkBook resolves the book owning a chunk.
func (s *BookStore) GetChunkBook(_ context.Context, chunkID string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	section, ok := s.sections[chunk.SectionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	chapter, ok := s.chapters[section.ChapterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	book, ok := s.books[chapter.BookID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

// ListBookChunks returns every chunk in a book, in chapter, section,
// position order.
func (s *BookStore) ListBookChunks(ctx context.Context, bookID string) ([]domain.Chunk, error) {
	chapters, err := s.GetChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}

	var all []domain.Chunk
	for _, chapter := range chapters {
		sections, err := s.GetSections(ctx, chapter.ID)
		if err != nil {
			return nil, err
		}
		for _, section := range sections {
			chunks, err := s.GetChunks(ctx, section.ID)
			if err != nil {
				return nil, err
			}
			all = append(all, chunks...)
		}
	}
	return all, nil
}

// DeleteChunk removes a single chunk.
func (s *BookStore) DeleteChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, id)
	return nil
}
