package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/core"
)

func TestMemory_SearchRanksBySimilarity(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	creator := core.IDFromContent("user")
	docID := core.IDFromContent("doc")

	require.NoError(t, store.EnsureReady(ctx, 3))
	require.NoError(t, store.UpsertChunks(ctx, creator,
		&core.Chunk{Id: 1, DocumentId: docID, Index: 0, Text: "aligned", Vector: []float32{1, 0, 0}},
		&core.Chunk{Id: 2, DocumentId: docID, Index: 1, Text: "orthogonal", Vector: []float32{0, 1, 0}},
		&core.Chunk{Id: 3, DocumentId: docID, Index: 2, Text: "close", Vector: []float32{0.9, 0.1, 0}},
	))

	hits, err := store.Search(ctx, creator, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, core.ID(1), hits[0].ChunkId)
	assert.Equal(t, core.ID(3), hits[1].ChunkId)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemory_UpsertIdempotent(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	creator := core.IDFromContent("user")

	chunk := &core.Chunk{Id: 7, DocumentId: 1, Text: "x", Vector: []float32{1, 0}}
	require.NoError(t, store.UpsertChunks(ctx, creator, chunk))
	require.NoError(t, store.UpsertChunks(ctx, creator, chunk))
	assert.Equal(t, 1, store.Len())
}

func TestMemory_ScopedByCreator(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.UpsertChunks(ctx, core.IDFromContent("alice"),
		&core.Chunk{Id: 1, DocumentId: 1, Text: "a", Vector: []float32{1, 0}}))

	hits, err := store.Search(ctx, core.IDFromContent("bob"), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemory_RejectsMissingVector(t *testing.T) {
	store := NewMemory()
	err := store.UpsertChunks(context.Background(), core.IDFromContent("user"),
		&core.Chunk{Id: 1, DocumentId: 1, Text: "no vector"})
	assert.Error(t, err)
}

func TestMemory_RejectsDimensionMismatch(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.EnsureReady(ctx, 3))
	err := store.UpsertChunks(ctx, core.IDFromContent("user"),
		&core.Chunk{Id: 1, DocumentId: 1, Text: "short", Vector: []float32{1, 0}})
	assert.Error(t, err)
}
