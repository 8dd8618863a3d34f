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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	switch doc.Category {
	case CategoryFile, CategoryWebsite, CategoryAudio:
		if doc.Locator == "" {
			return fmt.Errorf("%w: %s document requires a locator", ErrInvalidDocument, doc.Category)
		}
	case CategoryQuickNote:
		if doc.Content == "" {
			return fmt.Errorf("%w: quick note requires inline content", ErrInvalidDocument)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCategory, doc.Category)
	}
	if doc.Creator == 0 {
		return fmt.Errorf("%w: document requires a creator", ErrInvalidDocument)
	}
	return nil
}

// ValidateEntity validates an Entity according to domain rules.
func ValidateEntity(e *Entity) error {
	if e.Text == "" {
		return ErrEmptyEntityText
	}
	if e.Type == "" {
		return ErrEmptyEntityType
	}
	return nil
}

// CanTransition reports whether a stage task may move from one status to
// another. WAIT_TO precedes everything; IN_PROGRESS resolves to SUCCESS or
// FAILED; FAILED (and SUCCESS, for idempotent re-runs) may be reset to
// IN_PROGRESS on retry. SUCCESS and FAILED never transition to WAIT_TO.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case StatusWaitTo:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusSuccess || to == StatusFailed
	case StatusSuccess, StatusFailed:
		return to == StatusInProgress
	default:
		return false
	}
}

// String returns the persisted wire name of the status.
func (s TaskStatus) String() string {
	switch s {
	case StatusWaitTo:
		return "WAIT_TO"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

// String returns the stage name used in logs and task keys.
func (s TaskStage) String() string {
	switch s {
	case StageConvert:
		return "convert"
	case StageTranscribe:
		return "transcribe"
	case StageEmbed:
		return "embed"
	case StageGraph:
		return "graph"
	case StageSummarize:
		return "summarize"
	case StagePodcast:
		return "podcast"
	case StageTag:
		return "tag"
	case StageProcess:
		return "process"
	default:
		return fmt.Sprintf("TaskStage(%d)", int(s))
	}
}

// String returns the category name used in logs.
func (c DocumentCategory) String() string {
	switch c {
	case CategoryFile:
		return "file"
	case CategoryWebsite:
		return "website"
	case CategoryQuickNote:
		return "quicknote"
	case CategoryAudio:
		return "audio"
	default:
		return fmt.Sprintf("DocumentCategory(%d)", int(c))
	}
}

// String returns the integration status name used in logs.
func (s IntegrationStatus) String() string {
	switch s {
	case IntegrationWaitTo:
		return "WAIT_TO"
	case IntegrationSupplementing:
		return "SUPPLEMENTING"
	case IntegrationSuccess:
		return "SUCCESS"
	case IntegrationFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("IntegrationStatus(%d)", int(s))
	}
}
