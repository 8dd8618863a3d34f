package ai

// Role identifies the author of a chat message.
type Role int

const (
	// RoleSystem carries instructions for the model.
	RoleSystem Role = iota + 1
	// RoleUser carries the request content.
	RoleUser
	// RoleAssistant carries prior model output, used for continuations.
	RoleAssistant
)

// Message is a single chat message.
type Message struct {
	Role Role
	Text string
}

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	JSONMode    bool
}

// FinishReason reports why the model stopped generating.
type FinishReason string

const (
	// FinishStop means the model completed its output.
	FinishStop FinishReason = "stop"
	// FinishLength means output was truncated at the token limit and may be
	// continued with a follow-up request.
	FinishLength FinishReason = "length"
	// FinishUnknown covers providers that do not report a reason.
	FinishUnknown FinishReason = "unknown"
)

// CompletionResult is the outcome of one completion call.
type CompletionResult struct {
	Text         string
	FinishReason FinishReason
}

// ExtractedEntity is a raw entity identified in one chunk of text.
type ExtractedEntity struct {
	// Text is the entity's display text as it appears in the chunk.
	Text string

	// Type categorizes the entity (e.g. "person", "organization").
	Type string
}

// ExtractedRelation is a raw relation between two entities mentioned in the
// same chunk. Endpoints are entity display texts, resolved to canonical IDs
// later.
type ExtractedRelation struct {
	Source string
	Type   string
	Target string
}

// GraphExtraction is the raw per-chunk output of entity/relation extraction.
// It carries no cross-chunk knowledge.
type GraphExtraction struct {
	Entities  []ExtractedEntity
	Relations []ExtractedRelation
}

// PlannedImage is one illustration proposed by the planning call. The marker
// "{{image:<id>}}" is embedded in the planned markdown and substituted after
// generation.
type PlannedImage struct {
	Id     string
	Prompt string
}

// EntityTypes defines the valid categories for extracted entities.
var EntityTypes = []string{
	"concept",
	"event",
	"location",
	"organization",
	"person",
	"product",
	"technology",
	"time",
	"work",
}
