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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/storage"
	"github.com/poiesic/tessera/vector"
)

// Upserter writes one resolution batch into the document, graph and vector
// stores. Every write is idempotent: re-running the same batch produces no
// duplicate nodes or edges, and a failure partway through leaves a valid
// state recoverable by re-running the whole stage.
type Upserter struct {
	documents storage.DocumentRepository
	graph     graph.Store
	vectors   vector.Store
	logger    *slog.Logger
}

// NewUpserter creates an upserter over the three stores.
func NewUpserter(documents storage.DocumentRepository, graphStore graph.Store, vectors vector.Store, logger *slog.Logger) (*Upserter, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if graphStore == nil {
		return nil, ErrGraphStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Upserter{
		documents: documents,
		graph:     graphStore,
		vectors:   vectors,
		logger:    logger.With("component", "upserter"),
	}, nil
}

// Upsert writes the batch in dependency order: document, chunks with their
// document edges, entities, relations, mentions, then community detection
// and degree annotation over the updated entity graph. The vector upsert of
// chunk embeddings is independent of the graph writes and runs concurrently
// with them.
func (u *Upserter) Upsert(ctx context.Context, document *core.Document, chunks []*core.Chunk, resolution *Resolution) error {
	vectorDone := make(chan error, 1)
	go func() {
		vectorDone <- u.upsertVectors(ctx, document.Creator, chunks)
	}()

	graphErr := u.upsertGraph(ctx, document, chunks, resolution)
	vectorErr := <-vectorDone

	return errors.Join(graphErr, vectorErr)
}

func (u *Upserter) upsertGraph(ctx context.Context, document *core.Document, chunks []*core.Chunk, resolution *Resolution) error {
	if _, err := u.documents.UpdateDocuments(ctx, document); err != nil {
		return fmt.Errorf("failed to upsert document node: %w", err)
	}
	if err := u.graph.UpsertChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	if err := u.graph.UpsertEntities(ctx, resolution.Entities...); err != nil {
		return fmt.Errorf("failed to upsert entities: %w", err)
	}
	if err := u.graph.UpsertRelations(ctx, resolution.Relations...); err != nil {
		return fmt.Errorf("failed to upsert relations: %w", err)
	}
	if err := u.graph.UpsertMentions(ctx, resolution.Mentions...); err != nil {
		return fmt.Errorf("failed to upsert mentions: %w", err)
	}

	communities, err := u.graph.DetectCommunities(ctx, document.Creator)
	if err != nil {
		return fmt.Errorf("community detection failed: %w", err)
	}
	u.logger.Debug("community detection complete",
		"document", document.Id, "communities", len(communities))

	if err := u.graph.AnnotateDegrees(ctx, document.Creator); err != nil {
		return fmt.Errorf("degree annotation failed: %w", err)
	}
	return nil
}

func (u *Upserter) upsertVectors(ctx context.Context, creator core.ID, chunks []*core.Chunk) error {
	embedded := make([]*core.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Vector) > 0 {
			embedded = append(embedded, chunk)
		}
	}
	if len(embedded) == 0 {
		return nil
	}
	if err := u.vectors.UpsertChunks(ctx, creator, embedded...); err != nil {
		return fmt.Errorf("failed to upsert chunk vectors: %w", err)
	}
	return nil
}
