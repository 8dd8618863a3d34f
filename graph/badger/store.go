// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/storage"
	storagebadger "github.com/poiesic/tessera/storage/badger"
)

// Store implements graph.Store for BadgerDB, sharing the storage backend
// with the repositories so graph writes participate in the same database.
type Store struct {
	backend *storagebadger.Backend
	logger  *slog.Logger
}

var _ graph.Store = (*Store)(nil)

// NewStore creates a graph store over an open backend. The backend's
// lifecycle belongs to the caller; Close here is a no-op.
func NewStore(backend *storagebadger.Backend) (*Store, error) {
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "graph-store"),
	}, nil
}

// Close releases resources. The shared backend is closed by its owner.
func (s *Store) Close() error {
	return nil
}

// UpsertChunks stores chunks and links them to their documents.
func (s *Store) UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			indexKey := makeChunkDocumentKey(chunk.DocumentId, chunk.Index)
			if err := tx.Set(indexKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ChunksByDocument retrieves a document's chunks ordered by index.
func (s *Store) ChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialChunkDocumentKey(documentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// GetChunks retrieves chunks by ID.
func (s *Store) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// UpsertEntities stores canonical entities, merging chunk ID sets for
// entities that already exist.
func (s *Store) UpsertEntities(ctx context.Context, entities ...*core.Entity) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}

			key := makeEntityKey(entity.Id)
			existing, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				// The first observation wins the context fields; later
				// observations only extend the chunk set.
				merged := mergeChunkIDs(existing.ChunkIds, entity.ChunkIds)
				existing.ChunkIds = merged
				entity = existing
			}

			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}

			lookupKey := makeEntityLookupKey(entity.Creator, entity.Key(), entity.Id)
			if err := tx.Set(lookupKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}
			creatorKey := makeEntityCreatorKey(entity.Creator, entity.Id)
			if err := tx.Set(creatorKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntities retrieves entities by ID.
func (s *Store) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var results []*core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				results = append(results, entity)
			}
		}
		return nil
	}, false)
	return results, err
}

// EntitiesByKey retrieves every canonical entity of a creator sharing the
// (type, text) key.
func (s *Store) EntitiesByKey(ctx context.Context, creator core.ID, entityType, text string) ([]*core.Entity, error) {
	var results []*core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialEntityLookupKey(creator, core.EntityKey(entityType, text))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			id := lastEightBytesID(iter.Item().Key())
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				results = append(results, entity)
			}
		}
		return nil
	}, false)
	return results, err
}

// UpsertRelations stores relations, deduplicating on the
// endpoint-order-insensitive key and indexing them under both endpoints.
func (s *Store) UpsertRelations(ctx context.Context, relations ...core.Relation) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, relation := range relations {
			value := storage.MarshalRelation(&relation)
			if err := tx.Set(makeRelationKey(relation), value); err != nil {
				return err
			}
			if err := tx.Set(makeRelationEntityKey(relation.SourceId, relation), value); err != nil {
				return err
			}
			if err := tx.Set(makeRelationEntityKey(relation.TargetId, relation), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// UpsertMentions records entity-in-chunk observations in both directions.
func (s *Store) UpsertMentions(ctx context.Context, mentions ...graph.Mention) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, mention := range mentions {
			chunkKey := makeMentionChunkKey(mention.ChunkId, mention.EntityId)
			if err := tx.Set(chunkKey, storage.MarshalID(mention.EntityId)); err != nil {
				return err
			}
			entityKey := makeMentionEntityKey(mention.EntityId, mention.ChunkId)
			if err := tx.Set(entityKey, storage.MarshalID(mention.ChunkId)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query returns the subgraph touching the given documents.
func (s *Store) Query(ctx context.Context, creator core.ID, documentIDs ...core.ID) (*graph.Subgraph, error) {
	result := &graph.Subgraph{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		entitySet := make(map[core.ID]*core.Entity)

		for _, documentID := range documentIDs {
			chunkIDs, err := chunkIDsOf(tx, documentID)
			if err != nil {
				return err
			}
			for _, chunkID := range chunkIDs {
				entityIDs, err := mentionedEntityIDs(tx, chunkID)
				if err != nil {
					return err
				}
				for _, entityID := range entityIDs {
					if _, seen := entitySet[entityID]; seen {
						continue
					}
					entity, err := readEntity(tx, makeEntityKey(entityID))
					if err != nil {
						return err
					}
					if entity != nil && entity.Creator == creator {
						entitySet[entityID] = entity
					}
				}
			}
		}

		// Relations are kept only when both endpoints are in scope, so the
		// subgraph is closed under its own edges.
		relationSet := make(map[string]core.Relation)
		for entityID := range entitySet {
			relations, err := relationsOf(tx, entityID)
			if err != nil {
				return err
			}
			for _, relation := range relations {
				_, srcIn := entitySet[relation.SourceId]
				_, tgtIn := entitySet[relation.TargetId]
				if srcIn && tgtIn {
					relationSet[relation.DedupKey()] = relation
				}
			}
		}

		for _, entity := range entitySet {
			result.Entities = append(result.Entities, entity)
		}
		slices.SortFunc(result.Entities, func(a, b *core.Entity) int {
			switch {
			case a.Id < b.Id:
				return -1
			case a.Id > b.Id:
				return 1
			default:
				return 0
			}
		})
		for _, relation := range relationSet {
			result.Relations = append(result.Relations, relation)
		}
		slices.SortFunc(result.Relations, func(a, b core.Relation) int {
			switch {
			case a.DedupKey() < b.DedupKey():
				return -1
			case a.DedupKey() > b.DedupKey():
				return 1
			default:
				return 0
			}
		})
		return nil
	}, false)
	return result, err
}

// AnnotateDegrees recomputes and persists the relation degree of every
// entity owned by the creator.
func (s *Store) AnnotateDegrees(ctx context.Context, creator core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := entityIDsOfCreator(tx, creator)
		if err != nil {
			return err
		}
		for _, id := range ids {
			relations, err := relationsOf(tx, id)
			if err != nil {
				return err
			}
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity == nil || entity.Degree == len(relations) {
				continue
			}
			entity.Degree = len(relations)
			if err := tx.Set(makeEntityKey(id), storage.MarshalEntity(entity)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DetectCommunities clusters the creator's entities by deterministic label
// propagation over the relation adjacency and stores the result, replacing
// the creator's previous clustering.
func (s *Store) DetectCommunities(ctx context.Context, creator core.ID) ([]graph.Community, error) {
	adjacency := make(map[core.ID][]core.ID)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := entityIDsOfCreator(tx, creator)
		if err != nil {
			return err
		}
		inScope := make(map[core.ID]struct{}, len(ids))
		for _, id := range ids {
			inScope[id] = struct{}{}
			adjacency[id] = nil
		}
		for _, id := range ids {
			relations, err := relationsOf(tx, id)
			if err != nil {
				return err
			}
			for _, relation := range relations {
				other := relation.TargetId
				if other == id {
					other = relation.SourceId
				}
				if _, ok := inScope[other]; ok {
					adjacency[id] = append(adjacency[id], other)
				}
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	communities := graph.PropagateLabels(adjacency, 0)

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		// Labels shift as the graph grows, so the previous clustering is
		// dropped wholesale before the new one is written.
		stale, err := communityKeysOf(tx, creator)
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, community := range communities {
			key := makeCommunityKey(creator, community.Label)
			if err := tx.Set(key, marshalCommunity(community)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return communities, nil
}

// CommunitiesByCreator retrieves the creator's stored communities in label
// order.
func (s *Store) CommunitiesByCreator(ctx context.Context, creator core.ID) ([]graph.Community, error) {
	var results []graph.Community
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialCommunityKey(creator)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var community graph.Community
			err := iter.Item().Value(func(val []byte) error {
				var err error
				community, err = unmarshalCommunity(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, community)
		}
		return nil
	}, false)
	return results, err
}

// mergeChunkIDs unions two chunk ID sets, sorted.
func mergeChunkIDs(a, b []core.ID) []core.ID {
	seen := make(map[core.ID]struct{}, len(a)+len(b))
	merged := make([]core.ID, 0, len(a)+len(b))
	for _, id := range a {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	for _, id := range b {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	slices.Sort(merged)
	return merged
}

// chunkIDsOf lists a document's chunk IDs in index order.
func chunkIDsOf(tx *badger.Txn, documentID core.ID) ([]core.ID, error) {
	var ids []core.ID
	prefix := makePartialChunkDocumentKey(documentID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// mentionedEntityIDs lists the entities observed in a chunk.
func mentionedEntityIDs(tx *badger.Txn, chunkID core.ID) ([]core.ID, error) {
	var ids []core.ID
	prefix := makePartialMentionChunkKey(chunkID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		ids = append(ids, lastEightBytesID(iter.Item().Key()))
	}
	return ids, nil
}

// relationsOf lists the relations indexed under one entity endpoint.
func relationsOf(tx *badger.Txn, entityID core.ID) ([]core.Relation, error) {
	var relations []core.Relation
	prefix := makePartialRelationEntityKey(entityID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var relation *core.Relation
		err := iter.Item().Value(func(val []byte) error {
			var err error
			relation, err = storage.UnmarshalRelation(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if relation != nil {
			relations = append(relations, *relation)
		}
	}
	return relations, nil
}

// communityKeysOf collects the creator's stored community keys. Keys are
// copied out first; deleting under an open iterator is not safe in badger.
func communityKeysOf(tx *badger.Txn, creator core.ID) ([][]byte, error) {
	var keys [][]byte
	prefix := makePartialCommunityKey(creator)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

// entityIDsOfCreator lists all entity IDs owned by a creator.
func entityIDsOfCreator(tx *badger.Txn, creator core.ID) ([]core.ID, error) {
	var ids []core.ID
	prefix := makePartialEntityCreatorKey(creator)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		ids = append(ids, lastEightBytesID(iter.Item().Key()))
	}
	return ids, nil
}

// readChunk reads a chunk from the transaction.
// Returns nil without error when the key does not exist.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// readEntity reads an entity from the transaction.
// Returns nil without error when the key does not exist.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
