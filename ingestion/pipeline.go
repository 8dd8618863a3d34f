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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/engine"
	"github.com/poiesic/tessera/engine/markdown"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/objstore"
	"github.com/poiesic/tessera/storage"
	"github.com/poiesic/tessera/vector"
)

const extractionContinuationRounds = 8

// ProcessFlags selects the optional stages of a document run.
type ProcessFlags struct {
	Tag       bool
	Summarize bool
	Podcast   bool
}

// Pipeline orchestrates the per-document stage sequence: conversion,
// chunking, embedding, extraction, resolution and graph/vector upserts.
// Stages within one document run strictly sequentially; independent
// documents are dispatched concurrently on a worker pool. Every entry point
// is idempotent and safely retriable.
type Pipeline struct {
	documents storage.DocumentRepository
	tasks     storage.TaskRepository
	provider  ai.Provider
	registry  *engine.Registry
	objects   objstore.Store
	graph     graph.Store
	vectors   vector.Store

	extractor  *ai.GraphExtractor
	resolver   *Resolver
	upserter   *Upserter
	summarizer *ai.Summarizer
	tagger     *ai.Tagger

	pool           *ants.Pool
	resolverConfig ResolverConfig
	chunkOpts      []ChunkOption
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for dispatched jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithResolverConfig overrides the entity resolution thresholds.
func WithResolverConfig(config ResolverConfig) Option {
	return func(p *Pipeline) error {
		p.resolverConfig = config
		return nil
	}
}

// WithChunkOptions overrides the chunking parameters.
func WithChunkOptions(opts ...ChunkOption) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = opts
		return nil
	}
}

// NewPipeline creates a document processing pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	tasks storage.TaskRepository,
	provider ai.Provider,
	registry *engine.Registry,
	objects objstore.Store,
	graphStore graph.Store,
	vectors vector.Store,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if graphStore == nil {
		return nil, ErrGraphStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents:      documents,
		tasks:          tasks,
		provider:       provider,
		registry:       registry,
		objects:        objects,
		graph:          graphStore,
		vectors:        vectors,
		pool:           pool,
		resolverConfig: DefaultResolverConfig(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	extractor, err := ai.NewGraphExtractor(provider.Completer(), extractionContinuationRounds)
	if err != nil {
		p.Release()
		return nil, err
	}
	judge, err := ai.NewEntityJudge(provider.Completer())
	if err != nil {
		p.Release()
		return nil, err
	}
	resolver, err := NewResolver(provider.Embedder(), judge, graphStore, p.resolverConfig, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	upserter, err := NewUpserter(documents, graphStore, vectors, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	summarizer, err := ai.NewSummarizer(provider.Completer())
	if err != nil {
		p.Release()
		return nil, err
	}
	tagger, err := ai.NewTagger(provider.Completer())
	if err != nil {
		p.Release()
		return nil, err
	}

	p.extractor = extractor
	p.resolver = resolver
	p.upserter = upserter
	p.summarizer = summarizer
	p.tagger = tagger
	return p, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// DispatchDocument submits a full document run to the worker pool. Errors
// during the run are logged, not returned.
func (p *Pipeline) DispatchDocument(documentID, userID core.ID, engines engine.UserConfig, flags ProcessFlags) error {
	return p.pool.Submit(func() {
		if err := p.ProcessDocument(context.Background(), documentID, userID, engines, flags); err != nil {
			p.logger.Error("document processing failed",
				"document", documentID, "user", userID, "err", err)
		}
	})
}

// ProcessDocument runs the document's full stage sequence: Convert (or
// Transcribe for audio; skipped for quick notes), optional Tag, the combined
// embed/extract/graph pass, optional Summarize, optional Podcast. A stage
// failure halts the remaining sequence.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID, userID core.ID, engines engine.UserConfig, flags ProcessFlags) error {
	task, err := p.beginStage(ctx, documentID, userID, core.StageProcess)
	if err != nil {
		return err
	}

	err = p.runSequence(ctx, documentID, userID, engines, flags)
	if err != nil {
		p.failStage(ctx, task, err)
		return err
	}
	return p.completeStage(ctx, task, "")
}

func (p *Pipeline) runSequence(ctx context.Context, documentID, userID core.ID, engines engine.UserConfig, flags ProcessFlags) error {
	document, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if document.Category != core.CategoryQuickNote {
		if err := p.runConvert(ctx, document, userID, engines); err != nil {
			return err
		}
	}
	if flags.Tag {
		if err := p.ProcessDocumentTag(ctx, documentID, userID); err != nil {
			return err
		}
	}
	if err := p.ProcessDocumentGraph(ctx, documentID, userID); err != nil {
		return err
	}
	if flags.Summarize {
		if err := p.ProcessDocumentSummarize(ctx, documentID, userID); err != nil {
			return err
		}
	}
	if flags.Podcast {
		if err := p.runPodcast(ctx, documentID, userID, engines); err != nil {
			return err
		}
	}
	return nil
}

// runConvert executes the category-specific conversion stage and records
// the markdown (or transcript) artifact on the stage task. On failure the
// document's title and description are overwritten with an explicit
// "Convert Error" marker so the failure is visible without log access.
func (p *Pipeline) runConvert(ctx context.Context, document *core.Document, userID core.ID, engines engine.UserConfig) error {
	stage := core.StageConvert
	if document.Category == core.CategoryAudio {
		stage = core.StageTranscribe
	}
	task, err := p.beginStage(ctx, document.Id, userID, stage)
	if err != nil {
		return err
	}

	locator, err := p.convert(ctx, document, engines)
	if err != nil {
		p.markConvertError(ctx, document, err)
		p.failStage(ctx, task, err)
		return err
	}
	if _, err := p.documents.UpdateDocuments(ctx, document); err != nil {
		p.failStage(ctx, task, err)
		return err
	}
	return p.completeStage(ctx, task, locator)
}

func (p *Pipeline) convert(ctx context.Context, document *core.Document, engines engine.UserConfig) (string, error) {
	if p.registry == nil {
		return "", ErrRegistryRequired
	}
	switch document.Category {
	case core.CategoryFile:
		e, err := p.registry.Resolve(engines, engine.CapabilityFileAnalysis)
		if err != nil {
			return "", err
		}
		raw, err := p.objects.Read(ctx, document.Locator)
		if err != nil {
			return "", fmt.Errorf("failed to read uploaded file: %w", err)
		}
		text, err := e.FileAnalyser.AnalyseFile(ctx, document.Locator, raw)
		if err != nil {
			return "", err
		}
		p.deriveMetadata(document, text)
		return p.writeArtifact(ctx, document.Id, "converted.md", []byte(text))

	case core.CategoryWebsite:
		e, err := p.registry.Resolve(engines, engine.CapabilityWebsiteConversion)
		if err != nil {
			return "", err
		}
		conversion, err := e.WebsiteConverter.ConvertWebsite(ctx, document.Locator)
		if err != nil {
			return "", err
		}
		if conversion.Title != "" {
			document.Title = conversion.Title
		}
		if conversion.Description != "" {
			document.Description = conversion.Description
		}
		if conversion.Cover != "" {
			document.Cover = conversion.Cover
		}
		return p.writeArtifact(ctx, document.Id, "converted.md", []byte(conversion.Markdown))

	case core.CategoryAudio:
		e, err := p.registry.Resolve(engines, engine.CapabilityTranscription)
		if err != nil {
			return "", err
		}
		audio, err := p.objects.Read(ctx, document.Locator)
		if err != nil {
			return "", fmt.Errorf("failed to read audio: %w", err)
		}
		transcript, err := e.Transcriber.Transcribe(ctx, document.Locator, audio)
		if err != nil {
			return "", err
		}
		p.deriveMetadata(document, transcript)
		return p.writeArtifact(ctx, document.Id, "transcript.md", []byte(transcript))

	default:
		return "", fmt.Errorf("%w: category %s needs no conversion", core.ErrUnknownCategory, document.Category)
	}
}

// deriveMetadata fills missing title and description from the converted
// markdown.
func (p *Pipeline) deriveMetadata(document *core.Document, text string) {
	title, description := markdown.DeriveTitleDescription(text)
	if document.Title == "" && title != "" {
		document.Title = title
	}
	if document.Description == "" && description != "" {
		document.Description = description
	}
}

// markConvertError overwrites the document's title and description with the
// failure cause. Best-effort; a write error here only gets logged.
func (p *Pipeline) markConvertError(ctx context.Context, document *core.Document, cause error) {
	document.Title = "Convert Error: " + cause.Error()
	document.Description = ""
	if _, err := p.documents.UpdateDocuments(ctx, document); err != nil {
		p.logger.Error("failed to record convert error on document",
			"document", document.Id, "err", err)
	}
}

// ProcessDocumentGraph runs the combined streaming pass: chunk, embed,
// extract, resolve and upsert. It drives both the Embed and Graph stage
// records, since one pass produces both artifacts.
func (p *Pipeline) ProcessDocumentGraph(ctx context.Context, documentID, userID core.ID) error {
	embedTask, err := p.beginStage(ctx, documentID, userID, core.StageEmbed)
	if err != nil {
		return err
	}
	graphTask, err := p.beginStage(ctx, documentID, userID, core.StageGraph)
	if err != nil {
		p.failStage(ctx, embedTask, err)
		return err
	}

	if err := p.buildGraph(ctx, documentID); err != nil {
		p.failStage(ctx, embedTask, err)
		p.failStage(ctx, graphTask, err)
		return err
	}

	if err := p.completeStage(ctx, embedTask, ""); err != nil {
		return err
	}
	return p.completeStage(ctx, graphTask, "")
}

func (p *Pipeline) buildGraph(ctx context.Context, documentID core.ID) error {
	document, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	text, err := p.normalizedText(ctx, document)
	if err != nil {
		return err
	}

	stream, err := NewChunkStream(documentID, text, p.activityChecker(), p.chunkOpts...)
	if err != nil {
		return err
	}

	embedder := p.provider.Embedder()
	var chunks []*core.Chunk
	var batch []ChunkExtraction
	for stream.Next(ctx) {
		chunk := stream.Chunk()

		vec, err := embedder.EmbedText(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.Index, err)
		}
		chunk.Vector = vec

		extraction, err := p.extractor.ExtractGraph(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("extraction failed for chunk %d: %w", chunk.Index, err)
		}

		chunks = append(chunks, chunk)
		batch = append(batch, ChunkExtraction{Chunk: chunk, Extraction: extraction})
	}
	if err := stream.Err(); err != nil {
		return err
	}

	resolution, err := p.resolver.Resolve(ctx, document.Creator, batch)
	if err != nil {
		return err
	}
	return p.upserter.Upsert(ctx, document, chunks, resolution)
}

// ProcessDocumentSummarize folds the document's chunks into a running
// summary and stores it as an object-storage artifact.
func (p *Pipeline) ProcessDocumentSummarize(ctx context.Context, documentID, userID core.ID) error {
	task, err := p.beginStage(ctx, documentID, userID, core.StageSummarize)
	if err != nil {
		return err
	}

	locator, err := p.summarize(ctx, documentID)
	if err != nil {
		p.failStage(ctx, task, err)
		return err
	}
	return p.completeStage(ctx, task, locator)
}

func (p *Pipeline) summarize(ctx context.Context, documentID core.ID) (string, error) {
	chunks, err := p.graph.ChunksByDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: no chunks for document %d", core.ErrEmptyContent, documentID)
	}

	var summary string
	for _, chunk := range chunks {
		summary, err = p.summarizer.Fold(ctx, summary, chunk.Text)
		if err != nil {
			return "", fmt.Errorf("summarize failed at chunk %d: %w", chunk.Index, err)
		}
	}
	return p.writeArtifact(ctx, documentID, "summary.md", []byte(summary))
}

// ProcessDocumentTag extracts topic tags from the normalized text and stores
// them as the stage output.
func (p *Pipeline) ProcessDocumentTag(ctx context.Context, documentID, userID core.ID) error {
	task, err := p.beginStage(ctx, documentID, userID, core.StageTag)
	if err != nil {
		return err
	}

	output, err := p.tag(ctx, documentID)
	if err != nil {
		p.failStage(ctx, task, err)
		return err
	}
	return p.completeStage(ctx, task, output)
}

func (p *Pipeline) tag(ctx context.Context, documentID core.ID) (string, error) {
	document, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	text, err := p.normalizedText(ctx, document)
	if err != nil {
		return "", err
	}
	tags, err := p.tagger.Tags(ctx, text)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// runPodcast synthesizes the document's summary as speech. Requires a
// succeeded Summarize stage and a configured speech engine.
func (p *Pipeline) runPodcast(ctx context.Context, documentID, userID core.ID, engines engine.UserConfig) error {
	task, err := p.beginStage(ctx, documentID, userID, core.StagePodcast)
	if err != nil {
		return err
	}

	locator, err := p.podcast(ctx, documentID, engines)
	if err != nil {
		p.failStage(ctx, task, err)
		return err
	}
	return p.completeStage(ctx, task, locator)
}

func (p *Pipeline) podcast(ctx context.Context, documentID core.ID, engines engine.UserConfig) (string, error) {
	e, err := p.registry.Resolve(engines, engine.CapabilitySpeechSynthesis)
	if err != nil {
		return "", err
	}

	summaryTask, err := p.tasks.GetTaskByStage(ctx, documentID, core.StageSummarize)
	if err != nil {
		return "", fmt.Errorf("podcast requires a summary: %w", err)
	}
	if summaryTask.Status != core.StatusSuccess || summaryTask.Output == "" {
		return "", fmt.Errorf("%w: summary artifact for document %d", ErrNotReady, documentID)
	}
	summary, err := p.objects.Read(ctx, summaryTask.Output)
	if err != nil {
		return "", err
	}

	audio, err := e.SpeechSynthesizer.Synthesize(ctx, string(summary))
	if err != nil {
		return "", err
	}
	return p.writeArtifact(ctx, documentID, "podcast.mp3", audio)
}

// normalizedText loads the document's processable text: inline content for
// quick notes, the conversion artifact otherwise. Gated on readiness.
func (p *Pipeline) normalizedText(ctx context.Context, document *core.Document) (string, error) {
	readiness, err := CheckReadiness(ctx, p.tasks, document)
	if err != nil {
		return "", err
	}
	if !readiness.Ready {
		return "", fmt.Errorf("%w: document %d (%s)", ErrNotReady, document.Id, readiness.Reason)
	}

	if document.Category == core.CategoryQuickNote {
		return document.Content, nil
	}

	stage := core.StageConvert
	if document.Category == core.CategoryAudio {
		stage = core.StageTranscribe
	}
	task, err := p.tasks.GetTaskByStage(ctx, document.Id, stage)
	if err != nil {
		return "", err
	}
	content, err := p.objects.Read(ctx, task.Output)
	if err != nil {
		return "", fmt.Errorf("failed to read conversion artifact: %w", err)
	}
	return string(content), nil
}

// activityChecker reports a document active while it still exists. Deleting
// a document mid-pipeline aborts the chunk loop with core.ErrSuperseded.
func (p *Pipeline) activityChecker() ActivityChecker {
	return ActivityCheckerFunc(func(ctx context.Context, documentID core.ID) (bool, error) {
		_, err := p.documents.GetDocument(ctx, documentID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	})
}

func (p *Pipeline) writeArtifact(ctx context.Context, documentID core.ID, name string, content []byte) (string, error) {
	locator := fmt.Sprintf("docs/%d/%s", documentID, name)
	if err := p.objects.Write(ctx, locator, content); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", locator, err)
	}
	return locator, nil
}

// beginStage moves the stage task to IN_PROGRESS. A task already in progress
// rejects the transition, which acts as a soft lock against concurrent
// re-entry; that surfaces as core.ErrStageConflict.
func (p *Pipeline) beginStage(ctx context.Context, documentID, userID core.ID, stage core.TaskStage) (*core.StageTask, error) {
	task, err := p.tasks.GetOrCreateTask(ctx, documentID, userID, stage)
	if err != nil {
		return nil, err
	}
	updated, err := p.tasks.SetTaskStatus(ctx, task.Id, core.StatusInProgress, task.Output, "")
	if errors.Is(err, core.ErrInvalidTransition) {
		return nil, fmt.Errorf("%w: stage %s of document %d", core.ErrStageConflict, stage, documentID)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Pipeline) completeStage(ctx context.Context, task *core.StageTask, output string) error {
	_, err := p.tasks.SetTaskStatus(ctx, task.Id, core.StatusSuccess, output, "")
	return err
}

// failStage marks the task FAILED with the cause. Best-effort; the original
// error is what propagates.
func (p *Pipeline) failStage(ctx context.Context, task *core.StageTask, cause error) {
	if _, err := p.tasks.SetTaskStatus(ctx, task.Id, core.StatusFailed, task.Output, cause.Error()); err != nil {
		p.logger.Error("failed to record stage failure",
			"task", task.Id, "stage", task.Stage, "err", err)
	}
}
