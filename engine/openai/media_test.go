package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/tessera/engine"
)

func TestMedia_EngineIDIsStable(t *testing.T) {
	media := NewMedia()

	first := media.Engine("openai")
	second := media.Engine("openai")
	assert.Equal(t, first.Id, second.Id)
	assert.NotEqual(t, first.Id, media.Engine("openai-eu").Id)
}

func TestMedia_EngineCapabilities(t *testing.T) {
	e := NewMedia().Engine("openai")

	assert.True(t, e.Supports(engine.CapabilityImageGeneration))
	assert.True(t, e.Supports(engine.CapabilitySpeechSynthesis))
	assert.True(t, e.Supports(engine.CapabilityTranscription))
	assert.False(t, e.Supports(engine.CapabilityFileAnalysis))
	assert.False(t, e.Supports(engine.CapabilityWebsiteConversion))
}
