package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DocumentRepository has no resources to release.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
func (r *DocumentRepository) AddDocuments(ctx context.Context, documents ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, document := range documents {
			if err := core.ValidateDocument(document); err != nil {
				return err
			}

			// Use content-based ID if not set
			if document.Id == 0 {
				document.Id = core.DocumentID(document.Creator, document.Category, document.Locator, document.Content)
			}

			// Set timestamps
			if document.InsertedAt.IsZero() {
				document.InsertedAt = storedNow()
			}
			document.UpdatedAt = document.InsertedAt

			// Store primary record
			key := makeDocumentKey(document.Id)
			value := storage.MarshalDocument(document)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Store creator index
			creatorKey := makeDocumentCreatorKey(document.Creator, document.InsertedAt, document.Id)
			if err := tx.Set(creatorKey, storage.MarshalID(document.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return documents, err
}

// UpdateDocuments updates existing documents.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, documents ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, document := range documents {
			key := makeDocumentKey(document.Id)

			old, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Keep the original insertion time so the creator index stays valid
			document.InsertedAt = old.InsertedAt
			document.UpdatedAt = storedNow()

			value := storage.MarshalDocument(document)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return documents, err
}

// DeleteDocuments removes documents by their IDs, together with their creator
// index entries and stage tasks.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)

			document, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if document == nil {
				return storage.ErrNotFound
			}

			creatorKey := makeDocumentCreatorKey(document.Creator, document.InsertedAt, document.Id)
			if err := tx.Delete(creatorKey); err != nil {
				return err
			}

			// Stage tasks are content-addressed per (document, stage), so
			// their keys are computable without an index.
			for _, stage := range allStages {
				taskKey := makeTaskKey(core.TaskID(id, stage))
				if err := tx.Delete(taskKey); err != nil {
					return err
				}
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		var err error
		result, err = readDocument(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)
			document, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if document != nil {
				result = append(result, document)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetDocumentsByCreator retrieves all documents owned by a creator, ordered
// by insertion time.
func (r *DocumentRepository) GetDocumentsByCreator(ctx context.Context, creator core.ID) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialDocumentCreatorKey(creator)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var id core.ID
			err := item.Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			document, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if document != nil {
				results = append(results, document)
			}
		}
		return nil
	}, false)

	return results, err
}

// readDocument reads a document from the transaction.
// Returns nil without error when the key does not exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var document *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		document, err = storage.UnmarshalDocument(val)
		return err
	})
	return document, err
}
