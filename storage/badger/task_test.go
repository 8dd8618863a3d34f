package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
)

func TestTaskRepository_GetOrCreate(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	userID := core.IDFromContent("user")

	task, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageConvert)
	require.NoError(t, err)
	assert.Equal(t, core.TaskID(docID, core.StageConvert), task.Id)
	assert.Equal(t, core.StatusWaitTo, task.Status)

	// Second call returns the same record, not a fresh one.
	again, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageConvert)
	require.NoError(t, err)
	assert.Equal(t, task.Id, again.Id)
	assert.Equal(t, task.InsertedAt, again.InsertedAt)
}

func TestTaskRepository_StatusLifecycle(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	userID := core.IDFromContent("user")

	task, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageEmbed)
	require.NoError(t, err)

	task, err = repo.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusInProgress, task.Status)

	task, err = repo.SetTaskStatus(ctx, task.Id, core.StatusSuccess, "artifact/path.md", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSuccess, task.Status)
	assert.Equal(t, "artifact/path.md", task.Output)
	assert.Empty(t, task.ErrorContext)
}

func TestTaskRepository_RejectsIllegalTransitions(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	userID := core.IDFromContent("user")

	task, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageGraph)
	require.NoError(t, err)

	// WAIT_TO cannot jump straight to SUCCESS.
	_, err = repo.SetTaskStatus(ctx, task.Id, core.StatusSuccess, "", "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = repo.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
	require.NoError(t, err)

	// IN_PROGRESS acts as a lock: a second claim is rejected.
	_, err = repo.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestTaskRepository_RetryAfterFailure(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	userID := core.IDFromContent("user")

	task, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageConvert)
	require.NoError(t, err)

	_, err = repo.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
	require.NoError(t, err)
	task, err = repo.SetTaskStatus(ctx, task.Id, core.StatusFailed, "", "conversion engine unreachable")
	require.NoError(t, err)
	assert.Equal(t, "conversion engine unreachable", task.ErrorContext)

	// Retry re-enters IN_PROGRESS and clears the stale failure context.
	task, err = repo.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusInProgress, task.Status)
	assert.Empty(t, task.ErrorContext)
}

func TestTaskRepository_GetTasksByDocument(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()
	docID := core.IDFromContent("doc")
	userID := core.IDFromContent("user")

	_, err := repo.GetOrCreateTask(ctx, docID, userID, core.StageGraph)
	require.NoError(t, err)
	_, err = repo.GetOrCreateTask(ctx, docID, userID, core.StageConvert)
	require.NoError(t, err)

	tasks, err := repo.GetTasksByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	// Ordered by stage regardless of creation order.
	assert.Equal(t, core.StageConvert, tasks[0].Stage)
	assert.Equal(t, core.StageGraph, tasks[1].Stage)
}

func TestTaskRepository_SetStatusMissingTask(t *testing.T) {
	_, repo, _ := newTestRepos(t)

	_, err := repo.SetTaskStatus(context.Background(), core.ID(999), core.StatusInProgress, "", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
