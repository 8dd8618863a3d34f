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


// Package engine resolves a user's configured implementation for a media
// capability: file-to-markdown analysis, website conversion, image
// generation, speech synthesis and audio transcription.
//
// Each capability is a small interface; an Engine bundles the capabilities
// one backend provides. The Registry maps engine UUIDs to registered
// engines and is built once at process start and injected - there are no
// lazy global singletons. Resolution checks ability up front, so a stage
// fails with a precondition error before any work is done rather than
// halfway through.
package engine
