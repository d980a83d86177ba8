package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormemory "github.com/custodia-labs/bindery-cli/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

func TestRehydrate_RebuildsVectorStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	structure := uploadAnimals(t, f)
	chunks := sectionChunks(structure)

	// Simulate a restart: a fresh, empty vector store fed from the
	// persisted book store.
	fresh := vectormemory.NewStore()
	require.NoError(t, Rehydrate(ctx, f.books, fresh))

	collection := domain.EmbeddingTypeLocal.Collection()
	size, err := fresh.Size(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), size)

	// Rehydrated vectors answer queries identically.
	rebuilt := NewSearch(f.books, fresh, f.embedders)
	results, err := rebuilt.SearchBook(ctx, structure.Book.ID, "cats", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[0].ID, results[0].ChunkID)
}

func TestRehydrate_SkipsUnembeddedChunks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	structure := uploadAnimals(t, f)
	chunks := sectionChunks(structure)

	// Strip the embedding from one persisted chunk.
	stale := chunks[0]
	stale.SetContent("changed offline, not yet re-embedded")
	require.NoError(t, f.books.SaveChunks(ctx, []domain.Chunk{stale}))

	fresh := vectormemory.NewStore()
	require.NoError(t, Rehydrate(ctx, f.books, fresh))

	size, err := fresh.Size(ctx, domain.EmbeddingTypeLocal.Collection())
	require.NoError(t, err)
	assert.Equal(t, len(chunks)-1, size)
}

func TestRehydrate_EmptyStore(t *testing.T) {
	f := newFixture()

	fresh := vectormemory.NewStore()
	assert.NoError(t, Rehydrate(context.Background(), f.books, fresh))
}
