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

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/storage"
	"github.com/poiesic/tessera/vector"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// ChunkReembedder regenerates the embeddings of every chunk owned by a
// creator, updating the graph store and the vector store in step.
type ChunkReembedder struct {
	documents storage.DocumentRepository
	graph     graph.Store
	vectors   vector.Store
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
}

// NewChunkReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewChunkReembedder(
	documents storage.DocumentRepository,
	graphStore graph.Store,
	vectors vector.Store,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*ChunkReembedder, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if graphStore == nil {
		return nil, ErrGraphStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &ChunkReembedder{
		documents: documents,
		graph:     graphStore,
		vectors:   vectors,
		embedder:  embedder,
		config:    config,
		progress:  progress,
	}, nil
}

// Run reembeds every chunk of every document the creator owns. Progress is
// reported to the configured writer. The operation is idempotent; an aborted
// run can simply be restarted.
func (r *ChunkReembedder) Run(ctx context.Context, creator core.ID) error {
	docs, err := r.documents.GetDocumentsByCreator(ctx, creator)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	chunksByDoc := make(map[core.ID][]*core.Chunk, len(docs))
	total := 0
	for _, doc := range docs {
		chunks, err := r.graph.ChunksByDocument(ctx, doc.Id)
		if err != nil {
			return fmt.Errorf("failed to load chunks of document %d: %w", doc.Id, err)
		}
		if len(chunks) > 0 {
			chunksByDoc[doc.Id] = chunks
			total += len(chunks)
		}
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found for creator %d (0 chunks)\n", creator)
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	for _, doc := range docs {
		chunks := chunksByDoc[doc.Id]
		for start := 0; start < len(chunks); start += r.config.BatchSize {
			end := start + r.config.BatchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			if err := r.processBatch(ctx, creator, chunks[start:end]); err != nil {
				return fmt.Errorf("failed to process batch of document %d: %w", doc.Id, err)
			}
			processed += end - start
			tracker.Update(processed)
		}
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}

// processBatch embeds one batch of chunk texts and writes the refreshed
// vectors back. Vectors are normalized so cosine comparisons stay valid.
func (r *ChunkReembedder) processBatch(ctx context.Context, creator core.ID, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = NormalizeVector(embeddings[i])
	}

	if err := r.graph.UpsertChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}

	err = RetryWithBackoff(ctx, func() error {
		return r.vectors.UpsertChunks(ctx, creator, chunks...)
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to update vector store: %w", err)
	}

	return nil
}
