// Package ingestion orchestrates the document processing pipeline: category
// conversion, chunking, embedding, entity/relation extraction, semantic
// entity resolution and idempotent graph/vector upserts.
//
// Each document runs its stages strictly sequentially; independent documents
// are dispatched concurrently on worker pools. Every write is idempotent, so
// a failed stage can be retried by re-running it from the top.
package ingestion
