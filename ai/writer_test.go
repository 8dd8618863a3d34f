package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/ai/mock"
)

func TestSummarizerFold_UpdatesRunningSummary(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "The document introduces raft and now also covers log compaction.",
		FinishReason: ai.FinishStop,
	})
	summarizer, err := ai.NewSummarizer(completer)
	require.NoError(t, err)

	updated, err := summarizer.Fold(context.Background(),
		"The document introduces raft.",
		"Log compaction keeps the replicated log bounded.")
	require.NoError(t, err)
	assert.Contains(t, updated, "log compaction")

	prompt := completer.Requests[0].Messages[0].Text
	assert.Contains(t, prompt, "The document introduces raft.")
	assert.Contains(t, prompt, "Log compaction keeps")
}

func TestSummarizerFold_EmptyReplyKeepsPrevious(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "   \n",
		FinishReason: ai.FinishStop,
	})
	summarizer, err := ai.NewSummarizer(completer)
	require.NoError(t, err)

	updated, err := summarizer.Fold(context.Background(), "previous summary", "chunk")
	require.NoError(t, err)
	assert.Equal(t, "previous summary", updated)
}

func TestTaggerTags_NormalizesAndDeduplicates(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         `["Raft", "consensus", "raft ", "", "distributed systems"]`,
		FinishReason: ai.FinishStop,
	})
	tagger, err := ai.NewTagger(completer)
	require.NoError(t, err)

	tags, err := tagger.Tags(context.Background(), "document text")
	require.NoError(t, err)
	assert.Equal(t, []string{"raft", "consensus", "distributed systems"}, tags)
}

func TestTaggerTags_MalformedYieldsNone(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "no tags today",
		FinishReason: ai.FinishStop,
	})
	tagger, err := ai.NewTagger(completer)
	require.NoError(t, err)

	tags, err := tagger.Tags(context.Background(), "document text")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestMergeSection_NoSourcesReturnsExisting(t *testing.T) {
	completer := mock.NewMockCompleter()
	writer, err := ai.NewSectionWriter(completer)
	require.NoError(t, err)

	merged, err := writer.MergeSection(context.Background(), "# Existing", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "# Existing", merged)
	assert.Zero(t, completer.CallCount())
}

func TestMergeSection_IntegratesSources(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "# Updated section\n\nnow with source material",
		FinishReason: ai.FinishStop,
	})
	writer, err := ai.NewSectionWriter(completer)
	require.NoError(t, err)

	merged, err := writer.MergeSection(context.Background(),
		"# Existing", "raft -> invented_by -> diego ongaro",
		[]string{"source one text", "source two text"})
	require.NoError(t, err)
	assert.Contains(t, merged, "Updated section")

	prompt := completer.Requests[0].Messages[0].Text
	assert.Contains(t, prompt, "source one text")
	assert.Contains(t, prompt, "source two text")
	assert.Contains(t, prompt, "diego ongaro")
}

func TestIllustrationPlan_ParsesMarkersAndPrompts(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text: `{"document": "# Doc\n\n{{image:intro}}\n\nbody",
			"images": [{"id": "intro", "prompt": "a diagram of the pipeline"}]}`,
		FinishReason: ai.FinishStop,
	})
	planner, err := ai.NewIllustrationPlanner(completer, 3)
	require.NoError(t, err)

	doc, images, err := planner.Plan(context.Background(), "# Doc\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, doc, "{{image:intro}}")
	require.Len(t, images, 1)
	assert.Equal(t, "intro", images[0].Id)
	assert.Equal(t, "a diagram of the pipeline", images[0].Prompt)
}

func TestIllustrationPlan_MalformedKeepsOriginal(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "nope",
		FinishReason: ai.FinishStop,
	})
	planner, err := ai.NewIllustrationPlanner(completer, 3)
	require.NoError(t, err)

	doc, images, err := planner.Plan(context.Background(), "# Original")
	require.NoError(t, err)
	assert.Equal(t, "# Original", doc)
	assert.Empty(t, images)
}

func TestIllustrationPlan_CapsImageCount(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text: `{"document": "d", "images": [
			{"id": "a", "prompt": "p"},
			{"id": "b", "prompt": "p"},
			{"id": "c", "prompt": "p"}]}`,
		FinishReason: ai.FinishStop,
	})
	planner, err := ai.NewIllustrationPlanner(completer, 2)
	require.NoError(t, err)

	_, images, err := planner.Plan(context.Background(), "doc")
	require.NoError(t, err)
	assert.Len(t, images, 2)
}
