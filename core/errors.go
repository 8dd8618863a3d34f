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

import "errors"

// Domain errors
var (
	// ErrEmptyContent indicates a document's normalized text is empty.
	// This is a hard pipeline failure, not a silently-empty result.
	ErrEmptyContent = errors.New("document content is empty")

	// ErrSuperseded indicates the owning document was deleted or its task
	// superseded while a stage was running. Work aborts promptly; the stage
	// must not be marked successful.
	ErrSuperseded = errors.New("document deleted or task superseded")

	// ErrStageConflict indicates a stage is already IN_PROGRESS for the
	// document and may not be re-entered by a concurrent invocation.
	ErrStageConflict = errors.New("stage already in progress")

	// ErrStageOrder indicates a stage was entered before its predecessor
	// stage reached SUCCESS.
	ErrStageOrder = errors.New("predecessor stage not successful")

	// ErrInvalidTransition indicates an illegal stage-status transition.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrUnknownCategory indicates a document category outside the known set.
	ErrUnknownCategory = errors.New("unknown document category")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyEntityText indicates an entity with no display text.
	ErrEmptyEntityText = errors.New("entity text cannot be empty")

	// ErrEmptyEntityType indicates an entity with no type.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")
)
