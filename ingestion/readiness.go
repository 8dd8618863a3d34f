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

package ingestion

import (
	"context"
	"errors"

	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/storage"
)

// ReadinessReason is a machine-readable explanation of a readiness verdict,
// used for logging and skip decisions.
type ReadinessReason string

const (
	ReasonReady                ReadinessReason = "ready"
	ReasonConvertMissing       ReadinessReason = "convert-task-missing"
	ReasonConvertNotSucceeded  ReadinessReason = "convert-not-succeeded"
	ReasonConvertNoArtifact    ReadinessReason = "convert-artifact-missing"
	ReasonTranscribeMissing    ReadinessReason = "transcribe-task-missing"
	ReasonTranscribeNotDone    ReadinessReason = "transcribe-not-succeeded"
	ReasonTranscriptNoArtifact ReadinessReason = "transcript-artifact-missing"
	ReasonUnknownCategory      ReadinessReason = "unknown-category"
)

// Readiness is the verdict of the readiness gate for one document.
type Readiness struct {
	Ready  bool
	Reason ReadinessReason
}

// CheckReadiness reports whether a document's normalized text is available
// for downstream stages. Quick notes carry their content inline and are
// always ready; files and websites need a succeeded Convert task with a
// markdown artifact; audio needs a succeeded Transcribe task with a
// transcript artifact. Read-only.
func CheckReadiness(ctx context.Context, tasks storage.TaskRepository, document *core.Document) (Readiness, error) {
	switch document.Category {
	case core.CategoryQuickNote:
		return Readiness{Ready: true, Reason: ReasonReady}, nil
	case core.CategoryFile, core.CategoryWebsite:
		return checkStageArtifact(ctx, tasks, document.Id, core.StageConvert,
			ReasonConvertMissing, ReasonConvertNotSucceeded, ReasonConvertNoArtifact)
	case core.CategoryAudio:
		return checkStageArtifact(ctx, tasks, document.Id, core.StageTranscribe,
			ReasonTranscribeMissing, ReasonTranscribeNotDone, ReasonTranscriptNoArtifact)
	default:
		return Readiness{Reason: ReasonUnknownCategory}, nil
	}
}

func checkStageArtifact(
	ctx context.Context,
	tasks storage.TaskRepository,
	documentID core.ID,
	stage core.TaskStage,
	missing, notSucceeded, noArtifact ReadinessReason,
) (Readiness, error) {
	task, err := tasks.GetTaskByStage(ctx, documentID, stage)
	if errors.Is(err, storage.ErrNotFound) {
		return Readiness{Reason: missing}, nil
	}
	if err != nil {
		return Readiness{}, err
	}
	if task.Status != core.StatusSuccess {
		return Readiness{Reason: notSucceeded}, nil
	}
	if task.Output == "" {
		return Readiness{Reason: noArtifact}, nil
	}
	return Readiness{Ready: true, Reason: ReasonReady}, nil
}
