package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
	storagebadger "github.com/poiesic/tessera/storage/badger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := storagebadger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	store, err := NewStore(backend)
	require.NoError(t, err)
	return store
}

func makeChunk(documentID core.ID, index int, text string) *core.Chunk {
	return &core.Chunk{
		Id:         core.ChunkID(documentID, index, text),
		DocumentId: documentID,
		Index:      index,
		Text:       text,
	}
}

func makeEntity(creator core.ID, entityType, text, contextSample string) *core.Entity {
	contextHash := core.ContextHash(contextSample)
	return &core.Entity{
		Id:            core.EntityID(entityType, text, contextHash),
		Type:          entityType,
		Text:          text,
		Creator:       creator,
		ContextSample: contextSample,
		ContextHash:   contextHash,
	}
}

func TestStore_ChunksByDocumentOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")

	// Insert out of order; reads come back in index order.
	require.NoError(t, store.UpsertChunks(ctx,
		makeChunk(docID, 2, "third"),
		makeChunk(docID, 0, "first"),
		makeChunk(docID, 1, "second"),
	))

	chunks, err := store.ChunksByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "first", chunks[0].Text)
	assert.Equal(t, "second", chunks[1].Text)
	assert.Equal(t, "third", chunks[2].Text)
}

func TestStore_UpsertChunksIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	chunk := makeChunk(docID, 0, "same text")

	require.NoError(t, store.UpsertChunks(ctx, chunk))
	require.NoError(t, store.UpsertChunks(ctx, chunk))

	chunks, err := store.ChunksByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestStore_UpsertEntitiesMergesChunkIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	entity := makeEntity(creator, "person", "ada lovelace", "ada lovelace wrote the first program")
	entity.ChunkIds = []core.ID{5}
	require.NoError(t, store.UpsertEntities(ctx, entity))

	later := *entity
	later.ChunkIds = []core.ID{3, 5, 9}
	later.ContextSample = "a different window" // must not overwrite the original
	require.NoError(t, store.UpsertEntities(ctx, &later))

	got, err := store.GetEntities(ctx, entity.Id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []core.ID{3, 5, 9}, got[0].ChunkIds)
	assert.Equal(t, "ada lovelace wrote the first program", got[0].ContextSample)
}

func TestStore_EntitiesByKey_ContextSplit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	fruit := makeEntity(creator, "organization", "apple", "apple announced a new phone in cupertino")
	tree := makeEntity(creator, "organization", "apple", "apple the grower cooperative in normandy")
	require.NotEqual(t, fruit.Id, tree.Id)
	require.NoError(t, store.UpsertEntities(ctx, fruit, tree))

	entities, err := store.EntitiesByKey(ctx, creator, "organization", "apple")
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	// Another creator sees nothing.
	entities, err = store.EntitiesByKey(ctx, core.IDFromContent("stranger"), "organization", "apple")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestStore_UpsertRelationsDeduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	a := makeEntity(creator, "person", "a", "ctx a")
	b := makeEntity(creator, "person", "b", "ctx b")
	require.NoError(t, store.UpsertEntities(ctx, a, b))

	forward := core.Relation{SourceId: a.Id, Type: "knows", TargetId: b.Id}
	reverse := core.Relation{SourceId: b.Id, Type: "knows", TargetId: a.Id}
	require.NoError(t, store.UpsertRelations(ctx, forward, reverse, forward))

	docID := core.IDFromContent("doc")
	chunk := makeChunk(docID, 0, "a knows b")
	require.NoError(t, store.UpsertChunks(ctx, chunk))
	require.NoError(t, store.UpsertMentions(ctx,
		graph.Mention{ChunkId: chunk.Id, EntityId: a.Id},
		graph.Mention{ChunkId: chunk.Id, EntityId: b.Id},
	))

	subgraph, err := store.Query(ctx, creator, docID)
	require.NoError(t, err)
	assert.Len(t, subgraph.Entities, 2)
	assert.Len(t, subgraph.Relations, 1)
}

func TestStore_QueryScopes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	docA := core.IDFromContent("doc-a")
	docB := core.IDFromContent("doc-b")
	chunkA := makeChunk(docA, 0, "alpha text")
	chunkB := makeChunk(docB, 0, "beta text")
	require.NoError(t, store.UpsertChunks(ctx, chunkA, chunkB))

	alpha := makeEntity(creator, "concept", "alpha", "alpha ctx")
	beta := makeEntity(creator, "concept", "beta", "beta ctx")
	require.NoError(t, store.UpsertEntities(ctx, alpha, beta))
	require.NoError(t, store.UpsertMentions(ctx,
		graph.Mention{ChunkId: chunkA.Id, EntityId: alpha.Id},
		graph.Mention{ChunkId: chunkB.Id, EntityId: beta.Id},
	))
	// Cross-document relation has one endpoint out of scope for docA alone.
	require.NoError(t, store.UpsertRelations(ctx,
		core.Relation{SourceId: alpha.Id, Type: "precedes", TargetId: beta.Id}))

	subgraph, err := store.Query(ctx, creator, docA)
	require.NoError(t, err)
	require.Len(t, subgraph.Entities, 1)
	assert.Equal(t, alpha.Id, subgraph.Entities[0].Id)
	assert.Empty(t, subgraph.Relations)

	// Querying both documents closes the edge.
	subgraph, err = store.Query(ctx, creator, docA, docB)
	require.NoError(t, err)
	assert.Len(t, subgraph.Entities, 2)
	assert.Len(t, subgraph.Relations, 1)
}

func TestStore_AnnotateDegrees(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	hub := makeEntity(creator, "concept", "hub", "hub ctx")
	s1 := makeEntity(creator, "concept", "spoke one", "s1 ctx")
	s2 := makeEntity(creator, "concept", "spoke two", "s2 ctx")
	require.NoError(t, store.UpsertEntities(ctx, hub, s1, s2))
	require.NoError(t, store.UpsertRelations(ctx,
		core.Relation{SourceId: hub.Id, Type: "links", TargetId: s1.Id},
		core.Relation{SourceId: hub.Id, Type: "links", TargetId: s2.Id},
	))

	require.NoError(t, store.AnnotateDegrees(ctx, creator))

	entities, err := store.GetEntities(ctx, hub.Id, s1.Id, s2.Id)
	require.NoError(t, err)
	degrees := map[core.ID]int{}
	for _, e := range entities {
		degrees[e.Id] = e.Degree
	}
	assert.Equal(t, 2, degrees[hub.Id])
	assert.Equal(t, 1, degrees[s1.Id])
	assert.Equal(t, 1, degrees[s2.Id])
}

func TestStore_DetectCommunities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	a := makeEntity(creator, "concept", "a", "a ctx")
	b := makeEntity(creator, "concept", "b", "b ctx")
	c := makeEntity(creator, "concept", "c", "c ctx")
	lone := makeEntity(creator, "concept", "lone", "lone ctx")
	require.NoError(t, store.UpsertEntities(ctx, a, b, c, lone))
	require.NoError(t, store.UpsertRelations(ctx,
		core.Relation{SourceId: a.Id, Type: "rel", TargetId: b.Id},
		core.Relation{SourceId: b.Id, Type: "rel", TargetId: c.Id},
		core.Relation{SourceId: a.Id, Type: "rel", TargetId: c.Id},
	))

	communities, err := store.DetectCommunities(ctx, creator)
	require.NoError(t, err)
	require.Len(t, communities, 2)

	sizes := []int{len(communities[0].EntityIds), len(communities[1].EntityIds)}
	assert.ElementsMatch(t, []int{3, 1}, sizes)
}

func TestStore_CommunitiesPersisted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	creator := core.IDFromContent("user")

	a := makeEntity(creator, "concept", "a", "a ctx")
	b := makeEntity(creator, "concept", "b", "b ctx")
	c := makeEntity(creator, "concept", "c", "c ctx")
	lone := makeEntity(creator, "concept", "lone", "lone ctx")
	require.NoError(t, store.UpsertEntities(ctx, a, b, c, lone))
	require.NoError(t, store.UpsertRelations(ctx,
		core.Relation{SourceId: a.Id, Type: "rel", TargetId: b.Id},
		core.Relation{SourceId: b.Id, Type: "rel", TargetId: c.Id},
	))

	detected, err := store.DetectCommunities(ctx, creator)
	require.NoError(t, err)
	require.Len(t, detected, 2)

	stored, err := store.CommunitiesByCreator(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, detected, stored)

	// Linking the stray entity merges everything into one community; a
	// re-detection replaces the stored clustering rather than adding to it.
	require.NoError(t, store.UpsertRelations(ctx,
		core.Relation{SourceId: c.Id, Type: "rel", TargetId: lone.Id},
	))
	_, err = store.DetectCommunities(ctx, creator)
	require.NoError(t, err)

	stored, err = store.CommunitiesByCreator(ctx, creator)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].EntityIds, 4)
}

func TestStore_CommunitiesByCreatorEmpty(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.CommunitiesByCreator(context.Background(), core.IDFromContent("nobody"))
	require.NoError(t, err)
	assert.Empty(t, stored)
}
