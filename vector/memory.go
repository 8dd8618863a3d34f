package vector

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/poiesic/tessera/core"
)

// Memory is an in-process Store used in tests and single-node deployments
// without a vector database.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	points    map[core.ID]memoryPoint
}

type memoryPoint struct {
	creator    core.ID
	documentID core.ID
	vector     []float32
	text       string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{points: make(map[core.ID]memoryPoint)}
}

// EnsureReady records the expected vector dimension.
func (m *Memory) EnsureReady(ctx context.Context, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	return nil
}

// UpsertChunks stores the chunks' vectors, overwriting existing points.
func (m *Memory) UpsertChunks(ctx context.Context, creator core.ID, chunks ...*core.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			return fmt.Errorf("chunk %d has no vector", chunk.Id)
		}
		if m.dimension != 0 && len(chunk.Vector) != m.dimension {
			return fmt.Errorf("chunk %d has %d dimensions, expected %d", chunk.Id, len(chunk.Vector), m.dimension)
		}
		m.points[chunk.Id] = memoryPoint{
			creator:    creator,
			documentID: chunk.DocumentId,
			vector:     slices.Clone(chunk.Vector),
			text:       chunk.Text,
		}
	}
	return nil
}

// Search scans all points, which is fine at test scale.
func (m *Memory) Search(ctx context.Context, creator core.ID, query []float32, limit int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for id, point := range m.points {
		if point.creator != creator {
			continue
		}
		hits = append(hits, Hit{
			ChunkId:    id,
			DocumentId: point.documentID,
			Score:      cosineSimilarity(query, point.vector),
			Text:       point.text,
		})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		// Stable order for equal scores.
		case a.ChunkId < b.ChunkId:
			return -1
		case a.ChunkId > b.ChunkId:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len reports the number of stored points, for test assertions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
}
