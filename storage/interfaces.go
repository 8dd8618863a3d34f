package storage

import (
	"context"

	"github.com/poiesic/tessera/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocuments adds one or more documents to storage.
	// For documents with Id=0, derives a content-based ID from creator,
	// category and locator. Sets InsertedAt if not already set.
	// Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, documents ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, documents ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Also removes associated indices and stage tasks.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// GetDocumentsByCreator retrieves all documents owned by a creator,
	// ordered by insertion time.
	GetDocumentsByCreator(ctx context.Context, creator core.ID) ([]*core.Document, error)
}

// TaskRepository provides operations for the per-stage task records driving
// the ingestion state machine. Task IDs are content-addressed from
// (document, stage), so there is at most one task row per document/stage
// pair and retries reuse it.
type TaskRepository interface {
	Repository
	// GetOrCreateTask returns the task for (documentID, stage), creating it
	// in WAIT_TO status if it does not exist yet.
	GetOrCreateTask(ctx context.Context, documentID, userID core.ID, stage core.TaskStage) (*core.StageTask, error)

	// GetTask retrieves a single task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id core.ID) (*core.StageTask, error)

	// GetTaskByStage retrieves the task for (documentID, stage).
	// Returns ErrNotFound if no such task exists.
	GetTaskByStage(ctx context.Context, documentID core.ID, stage core.TaskStage) (*core.StageTask, error)

	// GetTasksByDocument retrieves all tasks of a document, ordered by stage.
	GetTasksByDocument(ctx context.Context, documentID core.ID) ([]*core.StageTask, error)

	// SetTaskStatus transitions the task to the given status, storing output
	// on success and errorContext on failure. Returns
	// core.ErrInvalidTransition when the state machine does not permit the
	// change, and ErrNotFound when the task doesn't exist.
	// The read-check-write runs in one transaction.
	SetTaskStatus(ctx context.Context, id core.ID, status core.TaskStatus, output, errorContext string) (*core.StageTask, error)
}

// SectionRepository provides operations for curated sections and the ties
// linking source documents into them.
type SectionRepository interface {
	Repository
	// AddSections adds one or more sections to storage.
	// For sections with Id=0, derives a content-based ID from creator and
	// title. Sets InsertedAt if not already set.
	AddSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error)

	// UpdateSections updates existing sections.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any section doesn't exist.
	UpdateSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error)

	// DeleteSections removes sections and their document ties by section ID.
	// Returns ErrNotFound if any section doesn't exist.
	DeleteSections(ctx context.Context, ids ...core.ID) error

	// GetSection retrieves a single section by ID.
	// Returns ErrNotFound if the section doesn't exist.
	GetSection(ctx context.Context, id core.ID) (*core.Section, error)

	// GetSectionsByCreator retrieves all sections owned by a creator.
	GetSectionsByCreator(ctx context.Context, creator core.ID) ([]*core.Section, error)

	// UpsertSectionDocument records or updates the integration status of a
	// document within a section.
	UpsertSectionDocument(ctx context.Context, tie *core.SectionDocument) error

	// GetSectionDocuments retrieves the document ties of a section.
	GetSectionDocuments(ctx context.Context, sectionID core.ID) ([]*core.SectionDocument, error)
}
