package search

import (
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/vector"
)

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string)
	AfterVectorSearch(hits []vector.Hit)
	AfterQueryEntityExtraction(entities []*core.Entity)
	FoundEntityChunks(key string, chunkIDs []core.ID)
	AfterChunkRetrieval(chunks []*core.Chunk)
	VectorAndEntityHit(chunk *core.Chunk)
	VectorHit(chunk *core.Chunk)
	EntityHit(chunk *core.Chunk)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterVectorSearch(_ []vector.Hit)             {}
func (n *noopMonitor) AfterQueryEntityExtraction(_ []*core.Entity)  {}
func (n *noopMonitor) FoundEntityChunks(_ string, _ []core.ID)      {}
func (n *noopMonitor) AfterChunkRetrieval(_ []*core.Chunk)          {}
func (n *noopMonitor) VectorAndEntityHit(_ *core.Chunk)             {}
func (n *noopMonitor) VectorHit(_ *core.Chunk)                      {}
func (n *noopMonitor) EntityHit(_ *core.Chunk)                      {}
func (n *noopMonitor) Finish(_ []*Result)                           {}
