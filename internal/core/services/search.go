package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bindery-cli/internal/logger"
)

// Ensure Search implements the interface.
var _ driving.SearchService = (*Search)(nil)

// defaultTopK is used when the caller passes a non-positive limit.
const defaultTopK = 10

// Search answers semantic queries over a single book.
type Search struct {
	books     driven.BookStore
	vectors   driven.VectorStore
	embedders map[domain.EmbeddingType]driven.EmbeddingService
}

// NewSearch creates a new search service.
func NewSearch(
	books driven.BookStore,
	vectors driven.VectorStore,
	embedders map[domain.EmbeddingType]driven.EmbeddingService,
) *Search {
	return &Search{
		books:     books,
		vectors:   vectors,
		embedders: embedders,
	}
}

// SearchBook embeds the query with the book's provider and returns up
// to topK chunks of that book ranked by cosine similarity.
func (s *Search) SearchBook(
	ctx context.Context, bookID, query string, topK int,
) ([]domain.SearchResult, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", bookID, err)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	embedder, ok := s.embedders[book.EmbeddingType]
	if !ok {
		return nil, fmt.Errorf("no embedder for type %q: %w",
			book.EmbeddingType, domain.ErrProviderUnavailable)
	}

	logger.Section("Search")
	logger.Debug("Book %s, query %q, topK %d", bookID, query, topK)

	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// The collection is shared across books of the same embedding
	// type, so over-fetch and filter down to this book, widening the
	// window until topK matches are found or the collection is
	// exhausted.
	collection := book.EmbeddingType.Collection()
	limit := topK * 3
	for {
		hits, err := s.vectors.Search(ctx, collection, vector, limit)
		if err != nil {
			return nil, fmt.Errorf("searching collection %s: %w", collection, err)
		}

		results := make([]domain.SearchResult, 0, topK)
		for _, hit := range hits {
			if hit.Metadata.BookID != bookID {
				continue
			}
			results = append(results, domain.SearchResult{
				ChunkID: hit.ChunkID,
				Score:   hit.Score,
				Title:   hit.Metadata.Title,
				Snippet: hit.Metadata.Content,
			})
			if len(results) == topK {
				break
			}
		}

		// Fewer hits than the window means the whole collection was
		// already scanned.
		if len(results) == topK || len(hits) < limit {
			logger.Info("%d result(s)", len(results))
			return results, nil
		}
		limit *= 2
	}
}
