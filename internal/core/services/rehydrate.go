package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bindery-cli/internal/logger"
)

// Rehydrate rebuilds the vector store from the embeddings persisted
// in the book store. Used at startup when the vector store is
// in-memory: the book store is the durable copy of every embedding.
func Rehydrate(ctx context.Context, books driven.BookStore, vectors driven.VectorStore) error {
	all, err := books.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("listing books: %w", err)
	}

	var loaded int
	for _, book := range all {
		chunks, err := books.ListBookChunks(ctx, book.ID)
		if err != nil {
			return fmt.Errorf("listing chunks of book %s: %w", book.ID, err)
		}

		collection := book.EmbeddingType.Collection()
		for _, chunk := range chunks {
			if !chunk.Embedded || len(chunk.Embedding) == 0 {
				continue
			}
			err := vectors.Add(ctx, collection, chunk.ID, chunk.Embedding, driven.VectorMetadata{
				BookID:  book.ID,
				ChunkID: chunk.ID,
				Title:   chunk.Title,
				Content: chunk.Content,
			})
			if err != nil {
				return fmt.Errorf("indexing chunk %s: %w", chunk.ID, err)
			}
			loaded++
		}
	}

	logger.Debug("Rehydrated %d vector(s) across %d book(s)", loaded, len(all))
	return nil
}
