package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/ai/mock"
)

func TestSameEntity_Verdicts(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"same", `{"same": true}`, true},
		{"different", `{"same": false}`, false},
		{"fenced", "```json\n{\"same\": true}\n```", true},
		{"unparseable treated as different", "they look alike to me", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := mock.ScriptedCompleter(&ai.CompletionResult{
				Text:         tt.response,
				FinishReason: ai.FinishStop,
			})
			judge, err := ai.NewEntityJudge(completer)
			require.NoError(t, err)

			same, err := judge.SameEntity(context.Background(),
				"apple", "organization",
				"apple shipped a new phone",
				"the apple fell from the tree")
			require.NoError(t, err)
			assert.Equal(t, tt.want, same)
		})
	}
}

func TestSameEntity_PromptCarriesBothContexts(t *testing.T) {
	completer := mock.ScriptedCompleter(&ai.CompletionResult{
		Text:         `{"same": false}`,
		FinishReason: ai.FinishStop,
	})
	judge, err := ai.NewEntityJudge(completer)
	require.NoError(t, err)

	_, err = judge.SameEntity(context.Background(),
		"mercury", "concept", "the planet closest to the sun", "a toxic heavy metal")
	require.NoError(t, err)

	require.Equal(t, 1, completer.CallCount())
	req := completer.Requests[0]
	assert.True(t, req.JSONMode)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Text, "mercury")
	assert.Contains(t, req.Messages[0].Text, "planet closest to the sun")
	assert.Contains(t, req.Messages[0].Text, "toxic heavy metal")
}
