package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// seedTree stores a book with two chapters, one section each, and two
// chunks in the first section.
func seedTree(t *testing.T, store *BookStore) *domain.Book {
	t.Helper()
	ctx := context.Background()

	book := &domain.Book{
		ID:            "book-1",
		Title:         "Field Notes",
		EmbeddingType: domain.EmbeddingTypeLocal,
		Mode:          domain.OrganizeByFile,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveBook(ctx, book))

	require.NoError(t, store.SaveChapter(ctx, &domain.Chapter{ID: "ch-2", BookID: "book-1", Title: "Second", Position: 1}))
	require.NoError(t, store.SaveChapter(ctx, &domain.Chapter{ID: "ch-1", BookID: "book-1", Title: "First", Position: 0}))
	require.NoError(t, store.SaveSection(ctx, &domain.Section{ID: "sec-1", ChapterID: "ch-1", Title: "Content", Position: 0}))
	require.NoError(t, store.SaveSection(ctx, &domain.Section{ID: "sec-2", ChapterID: "ch-2", Title: "Content", Position: 0}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "chunk-b", SectionID: "sec-1", Position: 1, Content: "second chunk"},
		{ID: "chunk-a", SectionID: "sec-1", Position: 0, Content: "first chunk"},
		{ID: "chunk-c", SectionID: "sec-2", Position: 0, Content: "other chapter"},
	}))

	return book
}

func TestGetBook_NotFound(t *testing.T) {
	store := NewBookStore()

	_, err := store.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAndGetBook(t *testing.T) {
	store := NewBookStore()
	book := seedTree(t, store)

	got, err := store.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, domain.EmbeddingTypeLocal, got.EmbeddingType)
}

func TestListBooks_OrderedByCreation(t *testing.T) {
	store := NewBookStore()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, store.SaveBook(ctx, &domain.Book{ID: "newer", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.SaveBook(ctx, &domain.Book{ID: "older", CreatedAt: base}))

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "older", books[0].ID)
	assert.Equal(t, "newer", books[1].ID)
}

func TestListingsOrderedByPosition(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	chapters, err := store.GetChapters(ctx, "book-1")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "ch-1", chapters[0].ID)
	assert.Equal(t, "ch-2", chapters[1].ID)

	chunks, err := store.GetChunks(ctx, "sec-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "chunk-a", chunks[0].ID)
	assert.Equal(t, "chunk-b", chunks[1].ID)
}

func TestListBookChunks_TreeOrder(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)

	chunks, err := store.ListBookChunks(context.Background(), "book-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "chunk-a", chunks[0].ID)
	assert.Equal(t, "chunk-b", chunks[1].ID)
	assert.Equal(t, "chunk-c", chunks[2].ID)
}

func TestGetChunkBook_WalksOwnership(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	book, err := store.GetChunkBook(ctx, "chunk-c")
	require.NoError(t, err)
	assert.Equal(t, "book-1", book.ID)

	_, err = store.GetChunkBook(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTree_KeepsBookRecord(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	require.NoError(t, store.DeleteTree(ctx, "book-1"))

	_, err := store.GetBook(ctx, "book-1")
	assert.NoError(t, err)

	chapters, err := store.GetChapters(ctx, "book-1")
	require.NoError(t, err)
	assert.Empty(t, chapters)

	_, err = store.GetChunk(ctx, "chunk-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBook_Cascades(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	require.NoError(t, store.DeleteBook(ctx, "book-1"))

	_, err := store.GetBook(ctx, "book-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "chunk-c")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveChunks_Upserts(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "chunk-a", SectionID: "sec-1", Position: 0, Content: "rewritten"},
	}))

	got, err := store.GetChunk(ctx, "chunk-a")
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.Content)
}

func TestDeleteChunk(t *testing.T) {
	store := NewBookStore()
	seedTree(t, store)
	ctx := context.Background()

	require.NoError(t, store.DeleteChunk(ctx, "chunk-a"))
	_, err := store.GetChunk(ctx, "chunk-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent chunk is not an error.
	assert.NoError(t, store.DeleteChunk(ctx, "chunk-a"))
}
