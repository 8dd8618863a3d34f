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

package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/vector"
)

// minVectorScore filters low-similarity vector hits before scoring.
const minVectorScore = 0.60

// extractionRounds bounds continuation when the query extraction truncates.
const extractionRounds = 2

// Result is one scored chunk returned by a search.
type Result struct {
	Chunk *core.Chunk
	Score float32
}

// Searcher provides hybrid vector and entity search over ingested chunks.
type Searcher struct {
	graph     graph.Store
	vectors   vector.Store
	embedder  ai.Embedder
	extractor *ai.GraphExtractor
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	graphStore graph.Store,
	vectors vector.Store,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if graphStore == nil {
		return nil, ErrGraphStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	extractor, err := ai.NewGraphExtractor(provider.Completer(), extractionRounds)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		graph:     graphStore,
		vectors:   vectors,
		embedder:  provider.Embedder(),
		extractor: extractor,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches the creator's chunks for matches to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, creator core.ID, query string, maxHits int) ([]*Result, error) {
	return s.FindSimilarWithMonitor(ctx, creator, query, maxHits, nil)
}

// FindSimilarWithMonitor searches with monitoring. The monitor receives
// callbacks at each stage of the search process.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, creator core.ID, query string, maxHits int, monitor Monitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Vector search over chunk embeddings
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, creator, embedding, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	vectorSet := make(map[core.ID]bool)
	vectorScores := make(map[core.ID]float32)
	for _, hit := range hits {
		if hit.Score < minVectorScore {
			continue
		}
		vectorSet[hit.ChunkId] = true
		vectorScores[hit.ChunkId] = hit.Score
	}
	monitor.AfterVectorSearch(hits)

	// 2. Extract entities from the query and match them against the graph
	extraction, err := s.extractor.ExtractGraph(ctx, query)
	if err != nil {
		s.logger.Error("error extracting entities from query", "err", err)
		return nil, err
	}

	entitySet := make(map[core.ID]bool)
	var matched []*core.Entity
	for _, extracted := range extraction.Entities {
		entities, err := s.graph.EntitiesByKey(ctx, creator, extracted.Type, extracted.Text)
		if err != nil {
			s.logger.Warn("failed to look up entity key", "type", extracted.Type, "text", extracted.Text, "err", err)
			continue
		}
		for _, entity := range entities {
			matched = append(matched, entity)
			monitor.FoundEntityChunks(entity.Key(), entity.ChunkIds)
			for _, chunkID := range entity.ChunkIds {
				entitySet[chunkID] = true
			}
		}
	}
	monitor.AfterQueryEntityExtraction(matched)

	// 3. Combine and retrieve chunks
	allIds := make(map[core.ID]bool)
	for id := range vectorSet {
		allIds[id] = true
	}
	for id := range entitySet {
		allIds[id] = true
	}

	if len(allIds) == 0 {
		return []*Result{}, nil
	}

	uniqueIds := make([]core.ID, 0, len(allIds))
	for id := range allIds {
		uniqueIds = append(uniqueIds, id)
	}

	chunks, err := s.graph.GetChunks(ctx, uniqueIds...)
	if err != nil {
		s.logger.Error("error retrieving chunks", "chunkCount", len(uniqueIds), "err", err)
		return nil, err
	}
	monitor.AfterChunkRetrieval(chunks)

	// 4. Score results
	results := make([]*Result, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}

		inVector := vectorSet[chunk.Id]
		inEntity := entitySet[chunk.Id]

		var score float32
		switch {
		case inVector && inEntity:
			// In both: boost by 1.5x, weighted by similarity score
			score = 1.5 * vectorScores[chunk.Id]
			monitor.VectorAndEntityHit(chunk)
		case inEntity:
			score = 1.2
			monitor.EntityHit(chunk)
		default:
			score = vectorScores[chunk.Id]
			monitor.VectorHit(chunk)
		}

		// Verbatim match boost
		if containsAllQueryWords(chunk.Text, query) {
			score += 0.3
		}

		results = append(results, &Result{Chunk: chunk, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Id < results[j].Chunk.Id
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}
