package vector

import (
	"context"

	"github.com/poiesic/tessera/core"
)

// Hit is one similarity search result.
type Hit struct {
	ChunkId    core.ID
	DocumentId core.ID
	Score      float32
	Text       string
}

// Store persists chunk embeddings and serves similarity queries.
// Implementations must be thread-safe; upserts must be idempotent per chunk.
type Store interface {
	// EnsureReady prepares the backing collection for vectors of the given
	// dimension. Idempotent.
	EnsureReady(ctx context.Context, dimension int) error

	// UpsertChunks stores the chunks' vectors. Chunks without a vector are
	// rejected.
	UpsertChunks(ctx context.Context, creator core.ID, chunks ...*core.Chunk) error

	// Search returns the creator's chunks most similar to the query vector,
	// ordered by descending score, up to limit results.
	Search(ctx context.Context, creator core.ID, query []float32, limit int) ([]Hit, error)

	// Close releases resources held by the store.
	Close() error
}
