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
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/graph"
)

// ResolverConfig holds the resolution thresholds and window bounds. The
// defaults match the values the pipeline was tuned with, but they are
// configuration, not constants.
type ResolverConfig struct {
	// HighThreshold is the cosine similarity at or above which two contexts
	// are merged without an LLM check.
	HighThreshold float64

	// LowThreshold is the cosine similarity below which contexts are
	// presumed different; between the thresholds an LLM judgment decides.
	LowThreshold float64

	// ContextRadius is how many characters around a mention are sampled.
	ContextRadius int

	// ContextCap bounds the total context window length.
	ContextCap int

	// EmbedBatchSize is how many context windows are embedded per request.
	EmbedBatchSize int
}

// DefaultResolverConfig returns the standard thresholds.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		HighThreshold:  0.85,
		LowThreshold:   0.70,
		ContextRadius:  200,
		ContextCap:     512,
		EmbedBatchSize: 10,
	}
}

// ChunkExtraction pairs one chunk with its raw per-chunk extraction.
type ChunkExtraction struct {
	Chunk      *core.Chunk
	Extraction *ai.GraphExtraction
}

// Resolution is the canonicalized output of one resolution batch, ready for
// the upsert layer.
type Resolution struct {
	Entities  []*core.Entity
	Relations []core.Relation
	Mentions  []graph.Mention
}

// Resolver decides, for every (type, text) pair in a batch, whether separate
// occurrences denote the same real-world entity. Naive (type, text)
// deduplication collapses distinct entities sharing a name; pure embedding
// similarity is unreliable near the decision boundary, so resolution
// escalates in three tiers: merge at high similarity, LLM tie-break in the
// ambiguous band, and one LLM judgment against the best candidate before
// minting a new canonical ID. Deterministic given identical inputs and
// thresholds.
type Resolver struct {
	embedder ai.Embedder
	judge    *ai.EntityJudge
	graph    graph.Store
	config   ResolverConfig
	logger   *slog.Logger
}

// NewResolver creates a resolver. Zero config fields fall back to the
// defaults.
func NewResolver(embedder ai.Embedder, judge *ai.EntityJudge, graphStore graph.Store, config ResolverConfig, logger *slog.Logger) (*Resolver, error) {
	if embedder == nil {
		return nil, ErrAIProviderRequired
	}
	if judge == nil {
		return nil, ErrAIProviderRequired
	}
	if graphStore == nil {
		return nil, ErrGraphStoreRequired
	}
	defaults := DefaultResolverConfig()
	if config.HighThreshold == 0 {
		config.HighThreshold = defaults.HighThreshold
	}
	if config.LowThreshold == 0 {
		config.LowThreshold = defaults.LowThreshold
	}
	if config.ContextRadius == 0 {
		config.ContextRadius = defaults.ContextRadius
	}
	if config.ContextCap == 0 {
		config.ContextCap = defaults.ContextCap
	}
	if config.EmbedBatchSize == 0 {
		config.EmbedBatchSize = defaults.EmbedBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedder: embedder,
		judge:    judge,
		graph:    graphStore,
		config:   config,
		logger:   logger.With("component", "resolver"),
	}, nil
}

// mention is one surviving entity observation within the batch.
type mention struct {
	entityType  string
	text        string
	chunkID     core.ID
	window      string
	contextHash core.ID
}

// keyState accumulates per-(type, text) resolution state across the batch.
type keyState struct {
	entityType  string
	text        string
	window      string
	contextHash core.ID
	vector      []float32
	chunkIDs    []core.ID
}

// Resolve canonicalizes the batch's raw entities and rewrites relation
// endpoints through the resulting ID map. Relations with an unresolvable
// endpoint are dropped, never partially written.
func (r *Resolver) Resolve(ctx context.Context, creator core.ID, batch []ChunkExtraction) (*Resolution, error) {
	mentions, droppedTexts := r.collectMentions(batch)
	if len(mentions) == 0 {
		return &Resolution{}, nil
	}

	keys, states := r.groupByKey(mentions)
	if err := r.embedWindows(ctx, keys, states); err != nil {
		return nil, err
	}

	resolution := &Resolution{}
	idByKey := make(map[string]core.ID, len(keys))
	idByText := make(map[string]core.ID, len(keys))

	for _, key := range keys {
		state := states[key]
		entity, err := r.resolveKey(ctx, creator, state)
		if err != nil {
			return nil, err
		}
		idByKey[key] = entity.Id
		if _, seen := idByText[state.text]; !seen {
			idByText[state.text] = entity.Id
		}
		resolution.Entities = append(resolution.Entities, entity)
	}

	for _, m := range mentions {
		resolution.Mentions = append(resolution.Mentions, graph.Mention{
			ChunkId:  m.chunkID,
			EntityId: idByKey[core.EntityKey(m.entityType, m.text)],
		})
	}

	resolution.Relations = r.rewriteRelations(batch, idByText, droppedTexts)
	return resolution, nil
}

// collectMentions walks the batch in order, builds context windows and
// applies the context-consistency filter: a key is pinned to the first
// context hash seen, and later mentions with a different hash are dropped
// along with their relations.
func (r *Resolver) collectMentions(batch []ChunkExtraction) ([]mention, map[core.ID]map[string]bool) {
	pinned := make(map[string]core.ID)
	seen := make(map[string]map[core.ID]bool)
	droppedTexts := make(map[core.ID]map[string]bool)

	var mentions []mention
	for _, ce := range batch {
		if ce.Extraction == nil {
			continue
		}
		for _, raw := range ce.Extraction.Entities {
			if raw.Text == "" || raw.Type == "" {
				continue
			}
			key := core.EntityKey(raw.Type, raw.Text)
			window := contextWindow(ce.Chunk.Text, raw.Text, r.config.ContextRadius, r.config.ContextCap)
			hash := core.ContextHash(window)

			if first, ok := pinned[key]; ok && first != hash {
				r.logger.Warn("dropping mention with conflicting context in batch",
					"entity", key, "chunk", ce.Chunk.Id)
				if droppedTexts[ce.Chunk.Id] == nil {
					droppedTexts[ce.Chunk.Id] = make(map[string]bool)
				}
				droppedTexts[ce.Chunk.Id][raw.Text] = true
				continue
			}
			pinned[key] = hash

			// One mention edge per entity per chunk.
			if seen[key] == nil {
				seen[key] = make(map[core.ID]bool)
			}
			if seen[key][ce.Chunk.Id] {
				continue
			}
			seen[key][ce.Chunk.Id] = true

			mentions = append(mentions, mention{
				entityType:  raw.Type,
				text:        raw.Text,
				chunkID:     ce.Chunk.Id,
				window:      window,
				contextHash: hash,
			})
		}
	}
	return mentions, droppedTexts
}

// groupByKey folds mentions into per-key state, keys in first-seen order.
func (r *Resolver) groupByKey(mentions []mention) ([]string, map[string]*keyState) {
	var keys []string
	states := make(map[string]*keyState)
	for _, m := range mentions {
		key := core.EntityKey(m.entityType, m.text)
		state, ok := states[key]
		if !ok {
			state = &keyState{
				entityType:  m.entityType,
				text:        m.text,
				window:      m.window,
				contextHash: m.contextHash,
			}
			states[key] = state
			keys = append(keys, key)
		}
		state.chunkIDs = append(state.chunkIDs, m.chunkID)
	}
	return keys, states
}

// embedWindows batch-embeds the context window of every key.
func (r *Resolver) embedWindows(ctx context.Context, keys []string, states map[string]*keyState) error {
	for start := 0; start < len(keys); start += r.config.EmbedBatchSize {
		end := start + r.config.EmbedBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		windows := make([]string, 0, end-start)
		for _, key := range keys[start:end] {
			windows = append(windows, states[key].window)
		}
		vectors, err := r.embedder.EmbedTexts(ctx, windows)
		if err != nil {
			return fmt.Errorf("failed to embed context windows: %w", err)
		}
		if len(vectors) != len(windows) {
			return fmt.Errorf("embedding count mismatch: %d windows, %d vectors", len(windows), len(vectors))
		}
		for i, key := range keys[start:end] {
			states[key].vector = vectors[i]
		}
	}
	return nil
}

// resolveKey decides the canonical ID for one key against the stored
// candidates sharing it.
func (r *Resolver) resolveKey(ctx context.Context, creator core.ID, state *keyState) (*core.Entity, error) {
	candidates, err := r.graph.EntitiesByKey(ctx, creator, state.entityType, state.text)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entity candidates: %w", err)
	}

	best, bestSim := bestCandidate(candidates, state.vector)
	switch {
	case best != nil && bestSim >= r.config.HighThreshold:
		return r.merge(best, state, creator), nil

	case best != nil && bestSim >= r.config.LowThreshold:
		same, err := r.judge.SameEntity(ctx, state.text, state.entityType, best.ContextSample, state.window)
		if err != nil {
			return nil, err
		}
		if same {
			return r.merge(best, state, creator), nil
		}

	case len(candidates) > 0:
		// Low similarity or no usable candidate embedding: one judgment
		// against the best available candidate before concluding different.
		candidate := best
		if candidate == nil {
			candidate = candidates[0]
		}
		same, err := r.judge.SameEntity(ctx, state.text, state.entityType, candidate.ContextSample, state.window)
		if err != nil {
			return nil, err
		}
		if same {
			return r.merge(candidate, state, creator), nil
		}
	}

	return &core.Entity{
		Id:            core.EntityID(state.entityType, state.text, state.contextHash),
		Type:          state.entityType,
		Text:          state.text,
		Creator:       creator,
		ChunkIds:      state.chunkIDs,
		ContextSample: state.window,
		ContextVector: state.vector,
		ContextHash:   state.contextHash,
	}, nil
}

// merge folds the batch state into an existing candidate, backfilling its
// context sample and embedding when missing.
func (r *Resolver) merge(candidate *core.Entity, state *keyState, creator core.ID) *core.Entity {
	merged := &core.Entity{
		Id:            candidate.Id,
		Type:          candidate.Type,
		Text:          candidate.Text,
		Creator:       creator,
		ChunkIds:      state.chunkIDs,
		ContextSample: candidate.ContextSample,
		ContextVector: candidate.ContextVector,
		ContextHash:   candidate.ContextHash,
	}
	if merged.ContextSample == "" {
		merged.ContextSample = state.window
		merged.ContextVector = state.vector
		merged.ContextHash = state.contextHash
	}
	return merged
}

// rewriteRelations maps relation endpoints through the batch ID map. Dangling
// relations and relations touching dropped mentions are discarded.
func (r *Resolver) rewriteRelations(batch []ChunkExtraction, idByText map[string]core.ID, droppedTexts map[core.ID]map[string]bool) []core.Relation {
	var relations []core.Relation
	seen := make(map[string]bool)
	for _, ce := range batch {
		if ce.Extraction == nil {
			continue
		}
		dropped := droppedTexts[ce.Chunk.Id]
		for _, raw := range ce.Extraction.Relations {
			if dropped[raw.Source] || dropped[raw.Target] {
				continue
			}
			sourceID, ok := idByText[raw.Source]
			if !ok {
				r.logger.Debug("dropping relation with unresolved source",
					"source", raw.Source, "type", raw.Type)
				continue
			}
			targetID, ok := idByText[raw.Target]
			if !ok {
				r.logger.Debug("dropping relation with unresolved target",
					"target", raw.Target, "type", raw.Type)
				continue
			}
			relation := core.Relation{SourceId: sourceID, Type: raw.Type, TargetId: targetID}
			if relation.SourceId == relation.TargetId || seen[relation.DedupKey()] {
				continue
			}
			seen[relation.DedupKey()] = true
			relations = append(relations, relation)
		}
	}
	return relations
}

// bestCandidate returns the stored candidate with the highest cosine
// similarity to the batch vector, skipping candidates without an embedding.
func bestCandidate(candidates []*core.Entity, vector []float32) (*core.Entity, float64) {
	var best *core.Entity
	bestSim := math.Inf(-1)
	for _, candidate := range candidates {
		if len(candidate.ContextVector) == 0 {
			continue
		}
		sim := cosineSimilarity(vector, candidate.ContextVector)
		if sim > bestSim {
			best = candidate
			bestSim = sim
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestSim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// contextWindow samples up to limit characters around the first occurrence of
// the entity text in the chunk. When the entity text cannot be located the
// head of the chunk is used.
func contextWindow(chunkText, entityText string, radius, limit int) string {
	runes := []rune(chunkText)
	lowered := strings.ToLower(chunkText)
	idx := strings.Index(lowered, strings.ToLower(entityText))

	var start, end int
	if idx < 0 {
		start, end = 0, min(len(runes), limit)
	} else {
		// Lowercasing can change rune byte widths, so the match offset is a
		// byte position in the lowered string only. Rune offsets line up one
		// to one between the two, so convert before slicing the original.
		runeIdx := len([]rune(lowered[:idx]))
		entityLen := len([]rune(entityText))
		start = max(0, runeIdx-radius)
		end = min(len(runes), runeIdx+entityLen+radius)
	}

	window := runes[start:end]
	if len(window) > limit {
		over := len(window) - limit
		window = window[over/2 : over/2+limit]
	}
	return strings.TrimSpace(string(window))
}
