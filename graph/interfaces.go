package graph

import (
	"context"

	"github.com/poiesic/tessera/core"
)

// Store is the knowledge-graph storage interface. Implementations must be
// thread-safe; every write must be idempotent so stage retries can replay
// them without corruption.
type Store interface {
	// UpsertChunks stores chunks and links them to their documents.
	// Chunks with identical IDs are overwritten in place.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error

	// ChunksByDocument retrieves a document's chunks ordered by index.
	ChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetChunks retrieves chunks by ID.
	// Returns only the chunks that exist.
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// UpsertEntities stores canonical entities. An entity that already
	// exists keeps its context sample, vector and hash; its chunk ID set is
	// merged with the incoming one.
	UpsertEntities(ctx context.Context, entities ...*core.Entity) error

	// GetEntities retrieves entities by ID.
	// Returns only the entities that exist.
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// EntitiesByKey retrieves every canonical entity of a creator sharing
	// the (type, text) key. Multiple results mean the key was split by
	// context during resolution.
	EntitiesByKey(ctx context.Context, creator core.ID, entityType, text string) ([]*core.Entity, error)

	// UpsertRelations stores relations, deduplicating on the
	// endpoint-order-insensitive key.
	UpsertRelations(ctx context.Context, relations ...core.Relation) error

	// UpsertMentions records entity-in-chunk observations.
	UpsertMentions(ctx context.Context, mentions ...Mention) error

	// Query returns the subgraph touching the given documents: entities
	// mentioned in their chunks plus relations internal to that entity set.
	Query(ctx context.Context, creator core.ID, documentIDs ...core.ID) (*Subgraph, error)

	// AnnotateDegrees recomputes and persists the relation degree of every
	// entity owned by the creator.
	AnnotateDegrees(ctx context.Context, creator core.ID) error

	// DetectCommunities clusters the creator's entities by label propagation
	// over the relation adjacency and stores the result, replacing the
	// creator's previous clustering. Results are deterministic for a given
	// graph.
	DetectCommunities(ctx context.Context, creator core.ID) ([]Community, error)

	// CommunitiesByCreator retrieves the creator's stored communities in
	// label order.
	CommunitiesByCreator(ctx context.Context, creator core.ID) ([]Community, error)

	// Close releases resources held by the store.
	Close() error
}
