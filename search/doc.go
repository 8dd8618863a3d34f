// Package search provides hybrid retrieval over ingested documents: vector
// similarity over chunk embeddings combined with entity matching through the
// knowledge graph. Chunks found both ways outrank either alone.
package search
