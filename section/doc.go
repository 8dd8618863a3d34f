// Package section aggregates processed documents into curated markdown
// sections. The workflow verifies each target document's readiness, skips
// (and marks failed) the unready ones at per-section-document granularity,
// merges the ready documents' markdown into the evolving section through the
// LLM, and optionally illustrates the result with best-effort image
// generation.
package section
