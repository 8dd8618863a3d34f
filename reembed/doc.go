// Package reembed regenerates chunk embeddings after an embedding model
// change. It walks a creator's documents, re-embeds every stored chunk in
// batches and writes the new vectors back to both the graph store and the
// vector store. Entity context vectors are not touched here; re-running the
// graph stage regenerates them through the same idempotent writes.
package reembed
