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

package tessera

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/ai/openai"
	"github.com/poiesic/tessera/engine"
	"github.com/poiesic/tessera/engine/markdown"
	"github.com/poiesic/tessera/graph"
	graphbadger "github.com/poiesic/tessera/graph/badger"
	"github.com/poiesic/tessera/ingestion"
	"github.com/poiesic/tessera/objstore"
	"github.com/poiesic/tessera/reembed"
	"github.com/poiesic/tessera/search"
	"github.com/poiesic/tessera/section"
	"github.com/poiesic/tessera/storage"
	"github.com/poiesic/tessera/storage/badger"
	"github.com/poiesic/tessera/vector"
)

// System wires the storage, AI, engine and object layers into one unit that
// the pipelines are built from.
type System struct {
	backend     *badger.Backend
	documents   storage.DocumentRepository
	tasks       storage.TaskRepository
	sections    storage.SectionRepository
	graphStore  graph.Store
	vectorStore vector.Store
	objects     objstore.Store
	provider    ai.Provider
	registry    *engine.Registry
	logger      *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig *ai.Config
	vectors  vector.Store
	engines  []*engine.Engine
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithVectorStore sets the vector store. Default is an in-memory store.
func WithVectorStore(store vector.Store) SystemOption {
	return func(o *systemOptions) {
		if store != nil {
			o.vectors = store
		}
	}
}

// WithEngines registers additional engines alongside the built-in markdown
// engine.
func WithEngines(engines ...*engine.Engine) SystemOption {
	return func(o *systemOptions) {
		o.engines = append(o.engines, engines...)
	}
}

// MarkdownEngineID is the stable identifier of the built-in markdown engine.
var MarkdownEngineID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tessera:engine:markdown"))

// NewSystem opens a system rooted at dataDir. The badger backend lives at
// dataDir/db and document artifacts at dataDir/objects.
func NewSystem(dataDir string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "db"), false)
	if err != nil {
		return nil, err
	}

	documents, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	tasks, err := badger.NewTaskRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	sections, err := badger.NewSectionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	graphStore, err := graphbadger.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	objects, err := objstore.NewFS(filepath.Join(dataDir, "objects"))
	if err != nil {
		backend.Close()
		return nil, err
	}

	vectors := options.vectors
	if vectors == nil {
		vectors = vector.NewMemory()
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		vectors.Close()
		backend.Close()
		return nil, err
	}

	converter := markdown.NewConverter()
	engines := append([]*engine.Engine{{
		Id:               MarkdownEngineID,
		Name:             "markdown",
		FileAnalyser:     markdown.NewAnalyser(converter),
		WebsiteConverter: converter,
	}}, options.engines...)
	registry, err := engine.NewRegistry(engines...)
	if err != nil {
		provider.Close()
		vectors.Close()
		backend.Close()
		return nil, err
	}

	return &System{
		backend:     backend,
		documents:   documents,
		tasks:       tasks,
		sections:    sections,
		graphStore:  graphStore,
		vectorStore: vectors,
		objects:     objects,
		provider:    provider,
		registry:    registry,
		logger:      slog.Default(),
	}, nil
}

func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.vectorStore.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *System) DocumentRepository() storage.DocumentRepository {
	return s.documents
}

func (s *System) TaskRepository() storage.TaskRepository {
	return s.tasks
}

func (s *System) SectionRepository() storage.SectionRepository {
	return s.sections
}

func (s *System) GraphStore() graph.Store {
	return s.graphStore
}

func (s *System) VectorStore() vector.Store {
	return s.vectorStore
}

func (s *System) ObjectStore() objstore.Store {
	return s.objects
}

func (s *System) Registry() *engine.Registry {
	return s.registry
}

func (s *System) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.documents, s.tasks, s.provider, s.registry, s.objects, s.graphStore, s.vectorStore, opts...)
}

func (s *System) NewSectionAggregator(opts ...section.Option) (*section.Aggregator, error) {
	return section.NewAggregator(s.sections, s.documents, s.tasks, s.provider, s.objects, s.graphStore, s.registry, opts...)
}

func (s *System) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.graphStore, s.vectorStore, s.provider, opts...)
}

// NewChunkReembedder builds the maintenance tool that regenerates chunk
// embeddings after an embedding model change.
func (s *System) NewChunkReembedder(config *reembed.Config, progress io.Writer) (*reembed.ChunkReembedder, error) {
	return reembed.NewChunkReembedder(s.documents, s.graphStore, s.vectorStore, s.provider.Embedder(), config, progress)
}
