package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
	storagebadger "github.com/poiesic/tessera/storage/badger"
)

func newReadinessFixture(t *testing.T) (storage.DocumentRepository, storage.TaskRepository) {
	t.Helper()
	documents, tasks, _, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return documents, tasks
}

func setStageResult(t *testing.T, tasks storage.TaskRepository, documentID core.ID, stage core.TaskStage, status core.TaskStatus, output string) {
	t.Helper()
	ctx := context.Background()
	task, err := tasks.GetOrCreateTask(ctx, documentID, core.ID(1), stage)
	require.NoError(t, err)
	if task.Status != core.StatusInProgress {
		_, err = tasks.SetTaskStatus(ctx, task.Id, core.StatusInProgress, "", "")
		require.NoError(t, err)
	}
	if status != core.StatusInProgress {
		_, err = tasks.SetTaskStatus(ctx, task.Id, status, output, "")
		require.NoError(t, err)
	}
}

func TestCheckReadiness_QuickNoteAlwaysReady(t *testing.T) {
	_, tasks := newReadinessFixture(t)

	readiness, err := CheckReadiness(context.Background(), tasks, &core.Document{
		Id:       core.ID(1),
		Category: core.CategoryQuickNote,
		Content:  "inline note",
	})
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
	assert.Equal(t, ReasonReady, readiness.Reason)
}

func TestCheckReadiness_FileConvertStates(t *testing.T) {
	_, tasks := newReadinessFixture(t)
	ctx := context.Background()
	document := &core.Document{Id: core.ID(2), Category: core.CategoryFile, Locator: "uploads/a.md"}

	readiness, err := CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, ReasonConvertMissing, readiness.Reason)

	setStageResult(t, tasks, document.Id, core.StageConvert, core.StatusInProgress, "")
	readiness, err = CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, ReasonConvertNotSucceeded, readiness.Reason)

	setStageResult(t, tasks, document.Id, core.StageConvert, core.StatusSuccess, "")
	readiness, err = CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, ReasonConvertNoArtifact, readiness.Reason)

	setStageResult(t, tasks, document.Id, core.StageConvert, core.StatusSuccess, "docs/2/converted.md")
	readiness, err = CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
}

func TestCheckReadiness_AudioNeedsTranscript(t *testing.T) {
	_, tasks := newReadinessFixture(t)
	ctx := context.Background()
	document := &core.Document{Id: core.ID(3), Category: core.CategoryAudio, Locator: "uploads/talk.mp3"}

	readiness, err := CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, ReasonTranscribeMissing, readiness.Reason)

	setStageResult(t, tasks, document.Id, core.StageTranscribe, core.StatusSuccess, "docs/3/transcript.md")
	readiness, err = CheckReadiness(ctx, tasks, document)
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
}

func TestCheckReadiness_UnknownCategory(t *testing.T) {
	_, tasks := newReadinessFixture(t)

	readiness, err := CheckReadiness(context.Background(), tasks, &core.Document{Id: core.ID(4)})
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, ReasonUnknownCategory, readiness.Reason)
}
