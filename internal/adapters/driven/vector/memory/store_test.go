package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

func TestAddAndSearch_SelfSimilarity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	meta := driven.VectorMetadata{BookID: "b1", ChunkID: "c1", Title: "cats", Content: "all about cats"}
	require.NoError(t, store.Add(ctx, "chunks_local", "c1", []float32{1, 0, 0}, meta))
	require.NoError(t, store.Add(ctx, "chunks_local", "c2", []float32{0, 1, 0}, driven.VectorMetadata{BookID: "b1", ChunkID: "c2"}))

	hits, err := store.Search(ctx, "chunks_local", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, meta, hits[0].Metadata)
	assert.InDelta(t, 0.0, hits[1].Score, 1e-9)
}

func TestSearch_OrderedByDescendingScore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c", "far", []float32{0, 1}, driven.VectorMetadata{}))
	require.NoError(t, store.Add(ctx, "c", "near", []float32{1, 0.1}, driven.VectorMetadata{}))
	require.NoError(t, store.Add(ctx, "c", "exact", []float32{2, 0}, driven.VectorMetadata{}))

	hits, err := store.Search(ctx, "c", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "exact", hits[0].ChunkID)
	assert.Equal(t, "near", hits[1].ChunkID)
	assert.Equal(t, "far", hits[2].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestSearch_TopKCapsResults(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Add(ctx, "c", id, []float32{1, 1}, driven.VectorMetadata{}))
	}

	hits, err := store.Search(ctx, "c", []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = store.Search(ctx, "c", []float32{1, 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_UnknownCollectionIsEmpty(t *testing.T) {
	store := NewStore()

	hits, err := store.Search(context.Background(), "never_seen", []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestDimensionPinnedByFirstInsert(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c", "first", []float32{1, 2, 3}, driven.VectorMetadata{}))

	err := store.Add(ctx, "c", "second", []float32{1, 2}, driven.VectorMetadata{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = store.Search(ctx, "c", []float32{1, 2}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = store.Add(ctx, "c", "empty", nil, driven.VectorMetadata{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestAdd_ReplacesExistingRecord(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c", "id", []float32{1, 0}, driven.VectorMetadata{Title: "old"}))
	require.NoError(t, store.Add(ctx, "c", "id", []float32{0, 1}, driven.VectorMetadata{Title: "new"}))

	size, err := store.Size(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	hits, err := store.Search(ctx, "c", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Metadata.Title)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestRemove_Idempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c", "id", []float32{1}, driven.VectorMetadata{}))

	removed, err := store.Remove(ctx, "c", "id")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, "c", "id")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.Remove(ctx, "other", "id")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClear_EmptiesButKeepsDimension(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "c", "id", []float32{1, 2}, driven.VectorMetadata{}))
	require.NoError(t, store.Clear(ctx, "c"))

	size, err := store.Size(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, size)

	// Dimension survives the clear.
	err = store.Add(ctx, "c", "id", []float32{1, 2, 3}, driven.VectorMetadata{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestAdd_CopiesCallerVector(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	vec := []float32{1, 0}
	require.NoError(t, store.Add(ctx, "c", "id", vec, driven.VectorMetadata{}))
	vec[0] = -1

	hits, err := store.Search(ctx, "c", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestCosine_ZeroNormScoresZero(t *testing.T) {
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosine([]float32{1, 1}, []float32{0, 0}))
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}
