package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/ai/mock"
)

func TestExtractGraph_ParsesEntitiesAndRelations(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text: `{"entities": [
			{"text": "Ada Lovelace", "type": "Person"},
			{"text": "analytical engine", "type": "technology"}
		], "relations": [
			{"source": "Ada Lovelace", "type": "worked_on", "target": "analytical engine"}
		]}`,
		FinishReason: ai.FinishStop,
	})

	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "some chunk text")
	require.NoError(t, err)

	require.Len(t, result.Entities, 2)
	assert.Equal(t, "ada lovelace", result.Entities[0].Text)
	assert.Equal(t, "person", result.Entities[0].Type)
	assert.Equal(t, "technology", result.Entities[1].Type)

	require.Len(t, result.Relations, 1)
	assert.Equal(t, "ada lovelace", result.Relations[0].Source)
	assert.Equal(t, "worked_on", result.Relations[0].Type)
	assert.Equal(t, "analytical engine", result.Relations[0].Target)
}

func TestExtractGraph_ContinuesTruncatedOutput(t *testing.T) {
	completer := mock.ScriptedCompleter(
		&ai.CompletionResult{
			Text:         `{"entities": [{"text": "berlin", "ty`,
			FinishReason: ai.FinishLength,
		},
		&ai.CompletionResult{
			Text:         `pe": "location"}], "relations": []}`,
			FinishReason: ai.FinishStop,
		},
	)

	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "berlin", result.Entities[0].Text)
	assert.Equal(t, "location", result.Entities[0].Type)

	// Second request must carry the partial output plus a continuation turn.
	require.Equal(t, 2, completer.CallCount())
	second := completer.Requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, ai.RoleAssistant, second.Messages[2].Role)
	assert.Contains(t, second.Messages[2].Text, `"berlin"`)
	assert.Equal(t, ai.RoleUser, second.Messages[3].Role)
}

func TestExtractGraph_ContinuationBound(t *testing.T) {
	// Every reply claims truncation; the extractor must stop at the bound.
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "partial",
		FinishReason: ai.FinishLength,
	})

	extractor, err := ai.NewGraphExtractor(completer, 3)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)

	assert.Equal(t, 3, completer.CallCount())
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Relations)
}

func TestExtractGraph_MalformedJSONYieldsEmpty(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "I could not find any entities, sorry!",
		FinishReason: ai.FinishStop,
	})

	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Relations)
}

func TestExtractGraph_StripsCodeFences(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         "```json\n{\"entities\": [{\"text\": \"go\", \"type\": \"technology\"}], \"relations\": []}\n```",
		FinishReason: ai.FinishStop,
	})

	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "go", result.Entities[0].Text)
}

func TestExtractGraph_FiltersInvalidEntries(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text: `{"entities": [
			{"text": "valid entity", "type": "concept"},
			{"text": "", "type": "concept"},
			{"text": "bad type", "type": "spaceship"}
		], "relations": [
			{"source": "valid entity", "type": "relates_to", "target": "valid entity"},
			{"source": "", "type": "relates_to", "target": "valid entity"},
			{"source": "a", "type": "links", "target": "b"}
		]}`,
		FinishReason: ai.FinishStop,
	})

	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	result, err := extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "valid entity", result.Entities[0].Text)

	// Self-relations and empty endpoints are dropped.
	require.Len(t, result.Relations, 1)
	assert.Equal(t, "a", result.Relations[0].Source)
	assert.Equal(t, "b", result.Relations[0].Target)
}

func TestExtractGraph_RequestsStrictJSON(t *testing.T) {
	completer := mock.NewMockCompleter()
	extractor, err := ai.NewGraphExtractor(completer, 8)
	require.NoError(t, err)

	_, err = extractor.ExtractGraph(context.Background(), "chunk")
	require.NoError(t, err)

	require.Equal(t, 1, completer.CallCount())
	req := completer.Requests[0]
	assert.True(t, req.JSONMode)
	assert.Zero(t, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "chunk", req.Messages[1].Text)
}
