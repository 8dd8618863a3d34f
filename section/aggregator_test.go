package section

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/ai/mock"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/engine"
	graphbadger "github.com/poiesic/tessera/graph/badger"
	"github.com/poiesic/tessera/objstore"
	"github.com/poiesic/tessera/storage"
	storagebadger "github.com/poiesic/tessera/storage/badger"
)

const testCreator = core.ID(55)

type fixture struct {
	aggregator *Aggregator
	sections   storage.SectionRepository
	documents  storage.DocumentRepository
	tasks      storage.TaskRepository
	objects    objstore.Store
	completer  *mock.MockCompleter
}

func newFixture(t *testing.T, registry *engine.Registry, completer *mock.MockCompleter) *fixture {
	t.Helper()
	documents, tasks, sections, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	graphStore, err := graphbadger.NewStore(backend)
	require.NoError(t, err)

	if completer == nil {
		completer = mock.NewMockCompleter()
	}
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), completer)

	objects, err := objstore.NewFS(t.TempDir())
	require.NoError(t, err)

	aggregator, err := NewAggregator(sections, documents, tasks, provider, objects, graphStore, registry)
	require.NoError(t, err)

	return &fixture{
		aggregator: aggregator,
		sections:   sections,
		documents:  documents,
		tasks:      tasks,
		objects:    objects,
		completer:  completer,
	}
}

func (f *fixture) addSection(t *testing.T, markdown string) *core.Section {
	t.Helper()
	added, err := f.sections.AddSections(context.Background(), &core.Section{
		Creator:  testCreator,
		Title:    "field notes",
		Markdown: markdown,
	})
	require.NoError(t, err)
	return added[0]
}

func (f *fixture) addQuickNote(t *testing.T, content string) *core.Document {
	t.Helper()
	added, err := f.documents.AddDocuments(context.Background(), &core.Document{
		Creator:  testCreator,
		Category: core.CategoryQuickNote,
		Content:  content,
	})
	require.NoError(t, err)
	return added[0]
}

func (f *fixture) tie(t *testing.T, sectionID, documentID core.ID) {
	t.Helper()
	err := f.sections.UpsertSectionDocument(context.Background(), &core.SectionDocument{
		SectionId:  sectionID,
		DocumentId: documentID,
		Status:     core.IntegrationWaitTo,
	})
	require.NoError(t, err)
}

func (f *fixture) tieStatus(t *testing.T, sectionID, documentID core.ID) core.IntegrationStatus {
	t.Helper()
	ties, err := f.sections.GetSectionDocuments(context.Background(), sectionID)
	require.NoError(t, err)
	for _, tie := range ties {
		if tie.DocumentId == documentID {
			return tie.Status
		}
	}
	t.Fatalf("no tie for document %d", documentID)
	return 0
}

// mergeCompleter replies to plain merge requests with merged and to
// JSON-mode planning requests with plan.
func mergeCompleter(merged, plan string) *mock.MockCompleter {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResult, error) {
		if req.JSONMode {
			return &ai.CompletionResult{Text: plan, FinishReason: ai.FinishStop}, nil
		}
		return &ai.CompletionResult{Text: merged, FinishReason: ai.FinishStop}, nil
	}
	return completer
}

func TestAggregator_MergesReadyDocuments(t *testing.T) {
	completer := mergeCompleter("# Field Notes\n\nalice and bob study storage engines.", "{}")
	f := newFixture(t, nil, completer)
	ctx := context.Background()

	section := f.addSection(t, "# Field Notes\n")
	noteA := f.addQuickNote(t, "alice studies storage engines")
	noteB := f.addQuickNote(t, "bob benchmarks log-structured trees")
	f.tie(t, section.Id, noteA.Id)
	f.tie(t, section.Id, noteB.Id)

	require.NoError(t, f.aggregator.ProcessSection(ctx, section.Id, core.ID(1), nil, Flags{}))

	updated, err := f.sections.GetSection(ctx, section.Id)
	require.NoError(t, err)
	assert.Equal(t, "# Field Notes\n\nalice and bob study storage engines.", updated.Markdown)
	assert.Equal(t, core.IntegrationSuccess, f.tieStatus(t, section.Id, noteA.Id))
	assert.Equal(t, core.IntegrationSuccess, f.tieStatus(t, section.Id, noteB.Id))

	// The merge prompt carried both source documents.
	require.NotEmpty(t, completer.Requests)
	prompt := completer.Requests[len(completer.Requests)-1].Messages[0].Text
	assert.Contains(t, prompt, "alice studies storage engines")
	assert.Contains(t, prompt, "bob benchmarks log-structured trees")
}

func TestAggregator_SkipsUnreadyDocument(t *testing.T) {
	completer := mergeCompleter("merged section body", "{}")
	f := newFixture(t, nil, completer)
	ctx := context.Background()

	section := f.addSection(t, "")
	note := f.addQuickNote(t, "the only ready source")

	added, err := f.documents.AddDocuments(ctx, &core.Document{
		Creator:  testCreator,
		Category: core.CategoryFile,
		Locator:  "uploads/pending.pdf",
	})
	require.NoError(t, err)
	unconverted := added[0]

	f.tie(t, section.Id, note.Id)
	f.tie(t, section.Id, unconverted.Id)

	require.NoError(t, f.aggregator.ProcessSection(ctx, section.Id, core.ID(1), nil, Flags{}))

	assert.Equal(t, core.IntegrationSuccess, f.tieStatus(t, section.Id, note.Id))
	assert.Equal(t, core.IntegrationFailed, f.tieStatus(t, section.Id, unconverted.Id))

	updated, err := f.sections.GetSection(ctx, section.Id)
	require.NoError(t, err)
	assert.Equal(t, "merged section body", updated.Markdown)
}

func TestAggregator_NothingReadyLeavesSectionUntouched(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	section := f.addSection(t, "original body")
	added, err := f.documents.AddDocuments(ctx, &core.Document{
		Creator:  testCreator,
		Category: core.CategoryFile,
		Locator:  "uploads/pending.pdf",
	})
	require.NoError(t, err)
	f.tie(t, section.Id, added[0].Id)

	require.NoError(t, f.aggregator.ProcessSection(ctx, section.Id, core.ID(1), nil, Flags{}))

	updated, err := f.sections.GetSection(ctx, section.Id)
	require.NoError(t, err)
	assert.Equal(t, "original body", updated.Markdown)
	assert.Equal(t, 0, f.completer.CallCount())
}

func TestAggregator_IllustrationMarkerHandling(t *testing.T) {
	plan := `{
		"document": "# Notes\n\n{{image:hero}}\n\nbody text\n\n{{image:dup}} and again {{image:dup}}",
		"images": [
			{"id": "hero", "prompt": "a hero image"},
			{"id": "dup", "prompt": "a duplicated marker"},
			{"id": "ghost", "prompt": "a marker that is not in the document"}
		]
	}`
	completer := mergeCompleter("pre-illustration body", plan)

	generator := &engine.Engine{
		Id:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("imager")),
		Name: "imager",
		ImageGenerator: imageFunc(func(ctx context.Context, prompt string) ([]byte, error) {
			if strings.Contains(prompt, "hero") {
				return []byte("png-bytes"), nil
			}
			return nil, errors.New("should not be asked for ambiguous markers")
		}),
	}
	registry, err := engine.NewRegistry(generator)
	require.NoError(t, err)

	f := newFixture(t, registry, completer)
	ctx := context.Background()

	section := f.addSection(t, "")
	note := f.addQuickNote(t, "illustrated note content")
	f.tie(t, section.Id, note.Id)

	engines := engine.UserConfig{engine.CapabilityImageGeneration: generator.Id}
	require.NoError(t, f.aggregator.ProcessSection(ctx, section.Id, core.ID(1), engines, Flags{Illustrate: true}))

	updated, err := f.sections.GetSection(ctx, section.Id)
	require.NoError(t, err)

	// The unique marker was substituted with the stored image.
	assert.NotContains(t, updated.Markdown, "{{image:hero}}")
	assert.Contains(t, updated.Markdown, "![hero](sections/")

	// Duplicate markers stay visible for operator diagnosis.
	assert.Equal(t, 2, strings.Count(updated.Markdown, "{{image:dup}}"))

	// The generated image landed in the object store at the linked locator.
	locator := fmt.Sprintf("sections/%d/images/hero.png", section.Id)
	stored, err := f.objects.Read(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored)
}

func TestAggregator_IllustrationPlanFailureKeepsMarkdown(t *testing.T) {
	// An unusable plan leaves the merged markdown exactly as written.
	completer := mergeCompleter("merged without images", "not json at all")

	generator := &engine.Engine{
		Id:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("imager")),
		Name: "imager",
		ImageGenerator: imageFunc(func(ctx context.Context, prompt string) ([]byte, error) {
			return []byte("png"), nil
		}),
	}
	registry, err := engine.NewRegistry(generator)
	require.NoError(t, err)

	f := newFixture(t, registry, completer)
	ctx := context.Background()

	section := f.addSection(t, "")
	note := f.addQuickNote(t, "plain note")
	f.tie(t, section.Id, note.Id)

	engines := engine.UserConfig{engine.CapabilityImageGeneration: generator.Id}
	require.NoError(t, f.aggregator.ProcessSection(ctx, section.Id, core.ID(1), engines, Flags{Illustrate: true}))

	updated, err := f.sections.GetSection(ctx, section.Id)
	require.NoError(t, err)
	assert.Equal(t, "merged without images", updated.Markdown)
}

type imageFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f imageFunc) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}
