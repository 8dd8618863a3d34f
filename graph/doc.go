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


// Package graph defines the knowledge-graph store: chunks, canonical
// entities, relations and the mention edges binding entities to the chunks
// they were observed in.
//
// All writes are idempotent. Chunk, entity and relation identities are
// content-addressed, so re-ingesting a document overwrites records with
// identical values instead of duplicating them. Entity upserts merge chunk
// ID sets; relation upserts deduplicate on the endpoint-order-insensitive
// key.
//
// The badger subpackage provides the embedded implementation. Community
// detection (deterministic label propagation over the entity adjacency) is
// implemented here so any backend can reuse it.
package graph
