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


// Package qdrant implements the vector.Store interface against a Qdrant
// server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/vector"
)

const (
	// CollectionName is the single collection holding all chunk embeddings.
	CollectionName = "tessera_chunks"

	upsertBatchSize = 100
)

// Store implements vector.Store for Qdrant.
type Store struct {
	client *qdrant.Client
	logger *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// NewStore connects to Qdrant and verifies it is reachable, retrying with
// exponential backoff so a server still starting up does not fail ingestion.
func NewStore(host string, port int) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client: client,
		logger: slog.Default().With("component", "qdrant-store"),
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant unreachable: %w", err)
	}
	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, exponentialBackoff)
}

// EnsureReady creates the chunk collection and payload indexes if missing.
// Idempotent - safe to call on every startup.
func (s *Store) EnsureReady(ctx context.Context, dimension int) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without indexes, creator/document filtering degrades badly at scale.
	for _, field := range []string{"creator", "document_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// UpsertChunks stores the chunks' vectors in batches. Point IDs are derived
// from chunk IDs, so replays overwrite instead of duplicating.
func (s *Store) UpsertChunks(ctx context.Context, creator core.ID, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			return fmt.Errorf("chunk %d has no vector", chunk.Id)
		}
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(chunk.Id)),
				Vectors: qdrant.NewVectors(chunk.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"creator":     idString(creator),
					"document_id": idString(chunk.DocumentId),
					"chunk_id":    idString(chunk.Id),
					"chunk_index": int64(chunk.Index),
					"text":        chunk.Text,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// Search returns the creator's chunks most similar to the query vector.
func (s *Store) Search(ctx context.Context, creator core.ID, query []float32, limit int) ([]vector.Hit, error) {
	limitValue := uint64(limit)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limitValue,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("creator", idString(creator)),
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	hits := make([]vector.Hit, 0, len(results))
	for _, point := range results {
		payload := point.Payload
		chunkID, err := parseIDString(payload["chunk_id"].GetStringValue())
		if err != nil {
			s.logger.Warn("skipping point with malformed chunk_id", "err", err)
			continue
		}
		documentID, err := parseIDString(payload["document_id"].GetStringValue())
		if err != nil {
			s.logger.Warn("skipping point with malformed document_id", "err", err)
			continue
		}
		hits = append(hits, vector.Hit{
			ChunkId:    chunkID,
			DocumentId: documentID,
			Score:      point.Score,
			Text:       payload["text"].GetStringValue(),
		})
	}
	return hits, nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// pointID derives a stable UUID point ID from a chunk ID.
func pointID(chunkID core.ID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("tessera:chunk:"+idString(chunkID))).String()
}

// idString renders an ID as a decimal payload value. Qdrant integer payloads
// are signed 64-bit, so IDs travel as keyword strings instead.
func idString(id core.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseIDString parses a decimal payload value back into an ID.
func parseIDString(s string) (core.ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return core.ID(v), err
}
