package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/tessera"
	"github.com/poiesic/tessera/engine"
	engineopenai "github.com/poiesic/tessera/engine/openai"
)

func newTestContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", "info", "")
	set.String("openai-api-key", "", "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	for name, value := range flags {
		require.NoError(t, ctx.Set(name, value))
	}
	return ctx
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			ctx := newTestContext(t, map[string]string{"log-level": level})
			assert.NoError(t, setupLogger(ctx), level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		ctx := newTestContext(t, map[string]string{"log-level": "verbose"})
		err := setupLogger(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestUserEngines(t *testing.T) {
	t.Run("markdown engine handles conversion by default", func(t *testing.T) {
		ctx := newTestContext(t, nil)
		config := userEngines(ctx)

		assert.Equal(t, tessera.MarkdownEngineID, config[engine.CapabilityFileAnalysis])
		assert.Equal(t, tessera.MarkdownEngineID, config[engine.CapabilityWebsiteConversion])
		assert.NotContains(t, config, engine.CapabilityImageGeneration)
		assert.NotContains(t, config, engine.CapabilitySpeechSynthesis)
	})

	t.Run("api key enables the media engine", func(t *testing.T) {
		ctx := newTestContext(t, map[string]string{"openai-api-key": "sk-test"})
		config := userEngines(ctx)

		mediaID := engineopenai.EngineID("openai-media")
		assert.Equal(t, mediaID, config[engine.CapabilityImageGeneration])
		assert.Equal(t, mediaID, config[engine.CapabilitySpeechSynthesis])
		assert.Equal(t, mediaID, config[engine.CapabilityTranscription])
	})
}
