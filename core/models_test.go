package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	id1 := IDFromContent("(organization,apple)")
	id2 := IDFromContent("(organization,apple)")
	assert.Equal(t, id1, id2)

	id3 := IDFromContent("(fruit,apple)")
	assert.NotEqual(t, id1, id3)
}

func TestChunkID_Deterministic(t *testing.T) {
	doc := IDFromContent("doc-a")

	id1 := ChunkID(doc, 0, "some chunk text")
	id2 := ChunkID(doc, 0, "some chunk text")
	assert.Equal(t, id1, id2)

	// Any input change yields a different ID.
	assert.NotEqual(t, id1, ChunkID(doc, 1, "some chunk text"))
	assert.NotEqual(t, id1, ChunkID(doc, 0, "other chunk text"))
	assert.NotEqual(t, id1, ChunkID(IDFromContent("doc-b"), 0, "some chunk text"))
}

func TestEntityID_ContextSensitive(t *testing.T) {
	orchards := ContextHash("rows of apple trees heavy with fruit")
	cupertino := ContextHash("the company announced quarterly earnings")

	id1 := EntityID("organization", "apple", orchards)
	id2 := EntityID("organization", "apple", cupertino)
	assert.NotEqual(t, id1, id2, "same (type, text) with different context must not collide")

	assert.Equal(t, id1, EntityID("organization", "apple", orchards))
}

func TestContextHash_Normalization(t *testing.T) {
	a := ContextHash("The  Quick\nBrown Fox")
	b := ContextHash("the quick brown fox")
	assert.Equal(t, a, b, "whitespace and case differences must not change the hash")

	c := ContextHash("the quick brown dog")
	assert.NotEqual(t, a, c)
}

func TestTaskID_OnePerDocumentStage(t *testing.T) {
	doc := IDFromContent("doc")
	assert.Equal(t, TaskID(doc, StageConvert), TaskID(doc, StageConvert))
	assert.NotEqual(t, TaskID(doc, StageConvert), TaskID(doc, StageGraph))
}

func TestRelation_DedupKey_Unordered(t *testing.T) {
	a, b := IDFromContent("a"), IDFromContent("b")

	forward := Relation{SourceId: a, Type: "works_at", TargetId: b}
	reverse := Relation{SourceId: b, Type: "works_at", TargetId: a}
	assert.Equal(t, forward.DedupKey(), reverse.DedupKey())

	other := Relation{SourceId: a, Type: "founded", TargetId: b}
	assert.NotEqual(t, forward.DedupKey(), other.DedupKey())
}

func TestEntityKey(t *testing.T) {
	e := &Entity{Type: "person", Text: "alice"}
	assert.Equal(t, "(person,alice)", e.Key())
	assert.Equal(t, e.Key(), EntityKey("person", "alice"))
}
