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

package section

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/engine"
	"github.com/poiesic/tessera/graph"
	"github.com/poiesic/tessera/ingestion"
	"github.com/poiesic/tessera/objstore"
	"github.com/poiesic/tessera/storage"
)

// Flags selects optional parts of a section run.
type Flags struct {
	Illustrate bool
}

// Aggregator runs the section aggregation workflow. All writes are
// idempotent; re-running a section picks up where the ties left off.
type Aggregator struct {
	sections  storage.SectionRepository
	documents storage.DocumentRepository
	tasks     storage.TaskRepository
	objects   objstore.Store
	graph     graph.Store
	registry  *engine.Registry

	writer  *ai.SectionWriter
	planner *ai.IllustrationPlanner
	logger  *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates the section workflow. The registry may be nil when
// illustration is never requested.
func NewAggregator(
	sections storage.SectionRepository,
	documents storage.DocumentRepository,
	tasks storage.TaskRepository,
	provider ai.Provider,
	objects objstore.Store,
	graphStore graph.Store,
	registry *engine.Registry,
	opts ...Option,
) (*Aggregator, error) {
	if sections == nil {
		return nil, ErrSectionRepositoryRequired
	}
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

	writer, err := ai.NewSectionWriter(provider.Completer())
	if err != nil {
		return nil, err
	}
	planner, err := ai.NewIllustrationPlanner(provider.Completer(), 0)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		sections:  sections,
		documents: documents,
		tasks:     tasks,
		objects:   objects,
		graph:     graphStore,
		registry:  registry,
		writer:    writer,
		planner:   planner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "section-aggregator")
	return a, nil
}

// readySource is one target document whose markdown is available for the
// merge.
type readySource struct {
	tie      *core.SectionDocument
	document *core.Document
	markdown string
}

// ProcessSection integrates the section's not-yet-integrated documents.
// Unready or unreadable documents are skipped and marked FAILED at the
// section-document granularity while the rest proceed; nothing about one
// bad document halts the section.
func (a *Aggregator) ProcessSection(ctx context.Context, sectionID, userID core.ID, engines engine.UserConfig, flags Flags) error {
	sec, err := a.sections.GetSection(ctx, sectionID)
	if err != nil {
		return err
	}
	ties, err := a.sections.GetSectionDocuments(ctx, sectionID)
	if err != nil {
		return err
	}

	var sources []readySource
	for _, tie := range ties {
		if tie.Status == core.IntegrationSuccess {
			continue
		}
		source, reason := a.collectSource(ctx, tie)
		if source == nil {
			a.logger.Warn("skipping section document",
				"section", sectionID, "document", tie.DocumentId, "reason", reason)
			a.markTie(ctx, tie, core.IntegrationFailed)
			continue
		}
		a.markTie(ctx, tie, core.IntegrationSupplementing)
		sources = append(sources, *source)
	}
	if len(sources) == 0 {
		return nil
	}

	documentIDs := make([]core.ID, len(sources))
	markdowns := make([]string, len(sources))
	for i, source := range sources {
		documentIDs[i] = source.document.Id
		markdowns[i] = source.markdown
	}

	subgraph, err := a.graph.Query(ctx, sec.Creator, documentIDs...)
	if err != nil {
		return err
	}

	merged, err := a.writer.MergeSection(ctx, sec.Markdown, renderGraphContext(subgraph), markdowns)
	if err != nil {
		for _, source := range sources {
			a.markTie(ctx, source.tie, core.IntegrationFailed)
		}
		return err
	}

	if flags.Illustrate {
		merged = a.illustrate(ctx, sectionID, engines, merged)
	}

	sec.Markdown = merged
	if _, err := a.sections.UpdateSections(ctx, sec); err != nil {
		return err
	}
	for _, source := range sources {
		a.markTie(ctx, source.tie, core.IntegrationSuccess)
	}
	return nil
}

// collectSource loads one target document and its markdown. A nil result
// means the document must be skipped; the reason explains why.
func (a *Aggregator) collectSource(ctx context.Context, tie *core.SectionDocument) (*readySource, string) {
	document, err := a.documents.GetDocument(ctx, tie.DocumentId)
	if err != nil {
		return nil, fmt.Sprintf("document fetch failed: %v", err)
	}

	readiness, err := ingestion.CheckReadiness(ctx, a.tasks, document)
	if err != nil {
		return nil, fmt.Sprintf("readiness check failed: %v", err)
	}
	if !readiness.Ready {
		return nil, string(readiness.Reason)
	}

	markdown, err := a.documentMarkdown(ctx, document)
	if err != nil {
		return nil, fmt.Sprintf("markdown fetch failed: %v", err)
	}
	return &readySource{tie: tie, document: document, markdown: markdown}, ""
}

func (a *Aggregator) documentMarkdown(ctx context.Context, document *core.Document) (string, error) {
	if document.Category == core.CategoryQuickNote {
		return document.Content, nil
	}
	stage := core.StageConvert
	if document.Category == core.CategoryAudio {
		stage = core.StageTranscribe
	}
	task, err := a.tasks.GetTaskByStage(ctx, document.Id, stage)
	if err != nil {
		return "", err
	}
	content, err := a.objects.Read(ctx, task.Output)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// illustrate plans and generates images for the merged markdown. Every step
// is best-effort: a failed plan keeps the markdown unchanged, a failed
// generation leaves that image's marker visible, and unmatched or duplicate
// markers stay in place for operator diagnosis.
func (a *Aggregator) illustrate(ctx context.Context, sectionID core.ID, engines engine.UserConfig, markdown string) string {
	if a.registry == nil {
		a.logger.Warn("illustration requested without an engine registry", "section", sectionID)
		return markdown
	}
	e, err := a.registry.Resolve(engines, engine.CapabilityImageGeneration)
	if err != nil {
		a.logger.Warn("no image generation engine, skipping illustration",
			"section", sectionID, "err", err)
		return markdown
	}

	planned, images, err := a.planner.Plan(ctx, markdown)
	if err != nil {
		a.logger.Warn("illustration planning failed", "section", sectionID, "err", err)
		return markdown
	}

	for _, image := range images {
		marker := "{{image:" + image.Id + "}}"
		if strings.Count(planned, marker) != 1 {
			a.logger.Warn("leaving ambiguous image marker in place",
				"section", sectionID, "marker", image.Id)
			continue
		}
		rendered, err := e.ImageGenerator.GenerateImage(ctx, image.Prompt)
		if err != nil {
			a.logger.Warn("image generation failed, leaving marker",
				"section", sectionID, "marker", image.Id, "err", err)
			continue
		}
		locator := fmt.Sprintf("sections/%d/images/%s.png", sectionID, image.Id)
		if err := a.objects.Write(ctx, locator, rendered); err != nil {
			a.logger.Warn("failed to store generated image, leaving marker",
				"section", sectionID, "marker", image.Id, "err", err)
			continue
		}
		planned = strings.Replace(planned, marker, fmt.Sprintf("![%s](%s)", image.Id, locator), 1)
	}
	return planned
}

// markTie records the tie's integration status; failures here only get
// logged so one bad write does not halt the section.
func (a *Aggregator) markTie(ctx context.Context, tie *core.SectionDocument, status core.IntegrationStatus) {
	tie.Status = status
	if err := a.sections.UpsertSectionDocument(ctx, tie); err != nil {
		a.logger.Error("failed to update section document status",
			"section", tie.SectionId, "document", tie.DocumentId, "err", err)
	}
}

// renderGraphContext flattens a subgraph into the textual form the section
// merge prompt consumes.
func renderGraphContext(subgraph *graph.Subgraph) string {
	byID := make(map[core.ID]*core.Entity, len(subgraph.Entities))
	var b strings.Builder

	b.WriteString("Entities:\n")
	for _, entity := range subgraph.Entities {
		byID[entity.Id] = entity
		fmt.Fprintf(&b, "- %s (%s)\n", entity.Text, entity.Type)
	}
	b.WriteString("Relations:\n")
	for _, relation := range subgraph.Relations {
		source, target := byID[relation.SourceId], byID[relation.TargetId]
		if source == nil || target == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s -[%s]-> %s\n", source.Text, relation.Type, target.Text)
	}
	return b.String()
}
