package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize_AddsV1Suffix(t *testing.T) {
	cfg := NewConfig(WithHost("http://localhost:11434"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)

	// Idempotent, trailing slash tolerated.
	cfg = NewConfig(WithHost("http://localhost:11434/"))
	cfg.Normalize()
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg = NewConfig(WithEmbeddingModel(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithMaxContinuationRounds(0))
	assert.Error(t, cfg.Validate())
}

func TestRepairJSON_MissingOpeningQuote(t *testing.T) {
	broken := `{"text": "berlin", type": "location"}`
	fixed := repairJSON(broken)
	assert.Equal(t, `{"text": "berlin", "type": "location"}`, fixed)
}

func TestRepairJSON_LeavesValidJSONAlone(t *testing.T) {
	valid := `{"entities": [{"text": "a", "type": "person"}], "relations": []}`
	assert.Equal(t, valid, repairJSON(valid))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences(`{"a": 1}`))
}
