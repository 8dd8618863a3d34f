// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
)

// allStages enumerates every pipeline stage, in stage order.
var allStages = []core.TaskStage{
	core.StageConvert,
	core.StageTranscribe,
	core.StageEmbed,
	core.StageGraph,
	core.StageSummarize,
	core.StagePodcast,
	core.StageTag,
	core.StageProcess,
}

// TaskRepository implements storage.TaskRepository for BadgerDB.
//
// Task IDs are content-addressed from (document, stage), so lookups by stage
// need no secondary index and concurrent GetOrCreateTask calls converge on
// the same record.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) (*TaskRepository, error) {
	return &TaskRepository{
		backend: backend,
	}, nil
}

// Close releases resources. TaskRepository has no resources to release.
func (r *TaskRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TaskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetOrCreateTask returns the task for (documentID, stage), creating it in
// WAIT_TO status if it does not exist yet.
func (r *TaskRepository) GetOrCreateTask(ctx context.Context, documentID, userID core.ID, stage core.TaskStage) (*core.StageTask, error) {
	var result *core.StageTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id := core.TaskID(documentID, stage)
		key := makeTaskKey(id)

		existing, err := readTask(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		now := storedNow()
		result = &core.StageTask{
			Id:         id,
			DocumentId: documentID,
			UserId:     userID,
			Stage:      stage,
			Status:     core.StatusWaitTo,
			InsertedAt: now,
			UpdatedAt:  now,
		}
		if err := tx.Set(key, storage.MarshalStageTask(result)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return result, err
}

// GetTask retrieves a single task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.ID) (*core.StageTask, error) {
	var result *core.StageTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTask(tx, makeTaskKey(id))
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

// GetTaskByStage retrieves the task for (documentID, stage).
func (r *TaskRepository) GetTaskByStage(ctx context.Context, documentID core.ID, stage core.TaskStage) (*core.StageTask, error) {
	return r.GetTask(ctx, core.TaskID(documentID, stage))
}

// GetTasksByDocument retrieves all tasks of a document, ordered by stage.
func (r *TaskRepository) GetTasksByDocument(ctx context.Context, documentID core.ID) ([]*core.StageTask, error) {
	var results []*core.StageTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, stage := range allStages {
			task, err := readTask(tx, makeTaskKey(core.TaskID(documentID, stage)))
			if err != nil {
				return err
			}
			if task != nil {
				results = append(results, task)
			}
		}
		return nil
	}, false)
	return results, err
}

// SetTaskStatus transitions the task to the given status within a single
// read-check-write transaction. Illegal transitions are rejected with
// core.ErrInvalidTransition, which callers use to detect a stage already
// claimed by a concurrent worker.
func (r *TaskRepository) SetTaskStatus(ctx context.Context, id core.ID, status core.TaskStatus, output, errorContext string) (*core.StageTask, error) {
	var result *core.StageTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(id)
		task, err := readTask(tx, key)
		if err != nil {
			return err
		}
		if task == nil {
			return storage.ErrNotFound
		}

		if !core.CanTransition(task.Status, status) {
			return core.ErrInvalidTransition
		}

		task.Status = status
		task.UpdatedAt = storedNow()
		switch status {
		case core.StatusSuccess:
			task.Output = output
			task.ErrorContext = ""
		case core.StatusFailed:
			task.ErrorContext = errorContext
		case core.StatusInProgress:
			// Re-entry after a retry clears the previous failure context.
			task.ErrorContext = ""
		}

		if err := tx.Set(key, storage.MarshalStageTask(task)); err != nil {
			return err
		}
		result = task
		return tx.Commit()
	}, true)
	return result, err
}

// readTask reads a stage task from the transaction.
// Returns nil without error when the key does not exist.
func readTask(tx *badger.Txn, key []byte) (*core.StageTask, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var task *core.StageTask
	err = item.Value(func(val []byte) error {
		var err error
		task, err = storage.UnmarshalStageTask(val)
		return err
	})
	return task, err
}
