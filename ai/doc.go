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


// Package ai provides abstractions for the AI services used by Tessera.
//
// Two low-level interfaces cover the external capability contracts:
//
//   - Embedder: generates vector embeddings from text
//   - Completer: chat completion returning text plus a finish reason
//
// All higher-level services (GraphExtractor, EntityJudge, Summarizer,
// Tagger, SectionWriter) are built on Completer in this package, so a single
// provider implementation serves every LLM concern of the pipeline.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//     via langchaingo
//   - ai/mock: test doubles for unit testing without external services
//
// Production constructors return interface types to enforce abstraction;
// mock constructors return concrete types so tests can inject behavior and
// assert call counts.
package ai
