package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so identical content always
// produces identical IDs, which makes downstream writes idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the content-addressed ID for a chunk from its document,
// its global index within that document and its text. Re-chunking identical
// input yields identical IDs.
func ChunkID(documentID ID, index int, text string) ID {
	return IDFromContent(fmt.Sprintf("chunk:%d:%d:%s", documentID, index, text))
}

// EntityID derives the canonical ID for an entity from its type, display text
// and the hash of the context it was first observed in. Two entities sharing
// (type, text) but observed in semantically different contexts receive
// different IDs.
func EntityID(entityType, text string, contextHash ID) ID {
	return IDFromContent(fmt.Sprintf("entity:%s:%s:%d", entityType, text, contextHash))
}

// ContextHash hashes a normalized context window. Normalization collapses
// whitespace and lowercases so cosmetic differences do not split entities.
func ContextHash(window string) ID {
	normalized := strings.ToLower(strings.Join(strings.Fields(window), " "))
	return IDFromContent("ctx:" + normalized)
}

// TaskID derives the deterministic ID of the stage task tracking one stage of
// one document. There is exactly one task per (document, stage).
func TaskID(documentID ID, stage TaskStage) ID {
	return IDFromContent(fmt.Sprintf("task:%d:%d", documentID, stage))
}

// DocumentID derives the content-addressed ID for a document from its owner,
// category and locator (or inline content for quick notes). Re-registering
// the same source yields the same document.
func DocumentID(creator ID, category DocumentCategory, locator, content string) ID {
	if category == CategoryQuickNote {
		return IDFromContent(fmt.Sprintf("doc:%d:%d:%s", creator, category, content))
	}
	return IDFromContent(fmt.Sprintf("doc:%d:%d:%s", creator, category, locator))
}

// SectionID derives the content-addressed ID for a section from its owner
// and title.
func SectionID(creator ID, title string) ID {
	return IDFromContent(fmt.Sprintf("section:%d:%s", creator, title))
}

// DocumentCategory identifies how a document entered the system and where its
// raw content lives.
type DocumentCategory int

const (
	// CategoryFile is an uploaded file referenced by an object-storage path.
	CategoryFile DocumentCategory = iota + 1
	// CategoryWebsite is a crawled web page referenced by URL.
	CategoryWebsite
	// CategoryQuickNote is a short note whose content is stored inline.
	CategoryQuickNote
	// CategoryAudio is an uploaded recording requiring transcription.
	CategoryAudio
)

// Document is the unit of ingestion. Once ingestion starts it is immutable
// except for the derived Title, Description and Cover fields written by the
// conversion stage.
type Document struct {
	Id          ID
	Creator     ID
	Category    DocumentCategory
	Locator     string // object-storage path or URL, empty for quick notes
	Content     string // inline content, quick notes only
	Title       string
	Description string
	Cover       string
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// TaskStage identifies one pipeline stage of a document.
type TaskStage int

const (
	StageConvert TaskStage = iota + 1
	StageTranscribe
	StageEmbed
	StageGraph
	StageSummarize
	StagePodcast
	StageTag
	StageProcess
)

// TaskStatus is the lifecycle state of a stage task.
type TaskStatus int

const (
	StatusWaitTo TaskStatus = iota + 1
	StatusInProgress
	StatusSuccess
	StatusFailed
)

// StageTask is a persisted status record tracking one pipeline stage for one
// document. Tasks are created lazily on first need; an IN_PROGRESS task acts
// as a soft lock against concurrent re-entry of the same stage.
type StageTask struct {
	Id           ID
	DocumentId   ID
	UserId       ID
	Stage        TaskStage
	Status       TaskStatus
	Output       string // artifact locator, e.g. converted markdown path
	ErrorContext string
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// Chunk is a bounded slice of a document's normalized text, the unit of
// embedding and extraction. Chunks are never mutated after creation except to
// attach an embedding vector or a summary.
type Chunk struct {
	Id         ID
	DocumentId ID
	Index      int // global, strictly increasing within a document
	Text       string
	Vector     []float32
	Summary    string
}

// Entity is a canonical, deduplicated entity derived from chunk text. The
// context sample is a text window around the first mention, and its embedding
// is what resolution compares new mentions against.
type Entity struct {
	Id            ID
	Type          string
	Text          string
	Creator       ID
	ChunkIds      []ID
	ContextSample string
	ContextVector []float32
	ContextHash   ID
	Degree        int
}

// Key returns the non-canonical identity of the entity as "(Type,Text)".
// Multiple canonical entities may share one key when their contexts differ.
func (e *Entity) Key() string {
	return "(" + e.Type + "," + e.Text + ")"
}

// EntityKey builds the (type, text) lookup key without an Entity value.
func EntityKey(entityType, text string) string {
	return "(" + entityType + "," + text + ")"
}

// Relation is a directed edge between two canonical entities. Relations are
// deduplicated as unordered-by-fields tuples; a relation with an unresolved
// endpoint is dropped, never partially written.
type Relation struct {
	SourceId ID
	Type     string
	TargetId ID
}

// DedupKey returns an endpoint-order-insensitive key for deduplication.
func (r Relation) DedupKey() string {
	lo, hi := r.SourceId, r.TargetId
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%d:%s:%d", lo, r.Type, hi)
}

// IntegrationStatus tracks one document's integration into a section,
// independently of the document's own stage tasks.
type IntegrationStatus int

const (
	IntegrationWaitTo IntegrationStatus = iota + 1
	IntegrationSupplementing
	IntegrationSuccess
	IntegrationFailed
)

// Section accumulates markdown content aggregated from multiple source
// documents by the section workflow.
type Section struct {
	Id         ID
	Creator    ID
	Title      string
	Markdown   string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// SectionDocument binds a document to a section together with its
// integration status.
type SectionDocument struct {
	SectionId  ID
	DocumentId ID
	Status     IntegrationStatus
	UpdatedAt  time.Time
}
