package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
)

// SectionRepository implements storage.SectionRepository for BadgerDB.
type SectionRepository struct {
	backend *Backend
}

var _ storage.SectionRepository = (*SectionRepository)(nil)

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(backend *Backend) (*SectionRepository, error) {
	return &SectionRepository{
		backend: backend,
	}, nil
}

// Close releases resources. SectionRepository has no resources to release.
func (r *SectionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSections adds one or more sections to storage.
func (r *SectionRepository) AddSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, section := range sections {
			if section.Id == 0 {
				section.Id = core.SectionID(section.Creator, section.Title)
			}

			if section.InsertedAt.IsZero() {
				section.InsertedAt = storedNow()
			}
			section.UpdatedAt = section.InsertedAt

			key := makeSectionKey(section.Id)
			if err := tx.Set(key, storage.MarshalSection(section)); err != nil {
				return err
			}

			creatorKey := makeSectionCreatorKey(section.Creator, section.InsertedAt, section.Id)
			if err := tx.Set(creatorKey, storage.MarshalID(section.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return sections, err
}

// UpdateSections updates existing sections.
func (r *SectionRepository) UpdateSections(ctx context.Context, sections ...*core.Section) ([]*core.Section, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, section := range sections {
			key := makeSectionKey(section.Id)

			old, err := readSection(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			section.InsertedAt = old.InsertedAt
			section.UpdatedAt = storedNow()

			if err := tx.Set(key, storage.MarshalSection(section)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return sections, err
}

// DeleteSections removes sections, their creator index entries and their
// document ties.
func (r *SectionRepository) DeleteSections(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeSectionKey(id)

			section, err := readSection(tx, key)
			if err != nil {
				return err
			}
			if section == nil {
				return storage.ErrNotFound
			}

			creatorKey := makeSectionCreatorKey(section.Creator, section.InsertedAt, section.Id)
			if err := tx.Delete(creatorKey); err != nil {
				return err
			}

			// Collect tie keys first; deleting under an open iterator is
			// not safe in badger.
			var tieKeys [][]byte
			prefix := makePartialSectionTieKey(id)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			iter := tx.NewIterator(opts)
			for iter.Rewind(); iter.Valid(); iter.Next() {
				tieKeys = append(tieKeys, iter.Item().KeyCopy(nil))
			}
			iter.Close()

			for _, tieKey := range tieKeys {
				if err := tx.Delete(tieKey); err != nil {
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

// GetSection retrieves a single section by ID.
func (r *SectionRepository) GetSection(ctx context.Context, id core.ID) (*core.Section, error) {
	var result *core.Section
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSection(tx, makeSectionKey(id))
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

// GetSectionsByCreator retrieves all sections owned by a creator, ordered by
// insertion time.
func (r *SectionRepository) GetSectionsByCreator(ctx context.Context, creator core.ID) ([]*core.Section, error) {
	var results []*core.Section
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialSectionCreatorKey(creator)
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

			section, err := readSection(tx, makeSectionKey(id))
			if err != nil {
				return err
			}
			if section != nil {
				results = append(results, section)
			}
		}
		return nil
	}, false)

	return results, err
}

// UpsertSectionDocument records or updates the integration status of a
// document within a section.
func (r *SectionRepository) UpsertSectionDocument(ctx context.Context, tie *core.SectionDocument) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		tie.UpdatedAt = storedNow()
		key := makeSectionTieKey(tie.SectionId, tie.DocumentId)
		if err := tx.Set(key, storage.MarshalSectionDocument(tie)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSectionDocuments retrieves the document ties of a section.
func (r *SectionRepository) GetSectionDocuments(ctx context.Context, sectionID core.ID) ([]*core.SectionDocument, error) {
	var results []*core.SectionDocument
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialSectionTieKey(sectionID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var tie *core.SectionDocument
			err := item.Value(func(val []byte) error {
				var err error
				tie, err = storage.UnmarshalSectionDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if tie != nil {
				results = append(results, tie)
			}
		}
		return nil
	}, false)

	return results, err
}

// readSection reads a section from the transaction.
// Returns nil without error when the key does not exist.
func readSection(tx *badger.Txn, key []byte) (*core.Section, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var section *core.Section
	err = item.Value(func(val []byte) error {
		var err error
		section, err = storage.UnmarshalSection(val)
		return err
	})
	return section, err
}
