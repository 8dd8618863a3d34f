package graph

import "github.com/poiesic/tessera/core"

// Mention is an edge recording that an entity was observed in a chunk.
type Mention struct {
	ChunkId  core.ID
	EntityId core.ID
}

// Subgraph is the result of a document-scoped graph query: the entities
// mentioned in the documents' chunks and the relations whose endpoints both
// fall inside that entity set.
type Subgraph struct {
	Entities  []*core.Entity
	Relations []core.Relation
}

// Community is one cluster of densely connected entities found by community
// detection. The label is the smallest entity ID in the cluster, which makes
// community identity stable across runs.
type Community struct {
	Label     core.ID
	EntityIds []core.ID
}
