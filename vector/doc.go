// Package vector defines the chunk-embedding store used for semantic
// search over ingested documents.
//
// Point identity is derived deterministically from chunk IDs, so re-running
// the embed stage overwrites points in place instead of duplicating them.
// The qdrant subpackage talks to a Qdrant server over gRPC; Memory is an
// in-process implementation for tests and small deployments.
package vector
