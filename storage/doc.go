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


// Package storage defines the repository interfaces for documents, stage
// tasks and sections, together with the serialization helpers shared by the
// storage backends.
//
// Repositories are grouped by aggregate: DocumentRepository owns documents,
// TaskRepository owns the per-stage task records that drive the ingestion
// state machine, SectionRepository owns curated sections and their document
// ties. The badger subpackage provides the embedded BadgerDB implementation.
//
// TaskRepository.SetTaskStatus is the single gate for task status changes;
// it rejects transitions that core.CanTransition does not allow, so stage
// ordering and the in-progress lock are enforced at the storage boundary
// no matter which caller attempts the change.
package storage
