package tessera

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystem(t *testing.T) {
	t.Run("create new system", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_system")
		sys, err := NewSystem(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, sys)
		defer sys.Close()

		// Verify components are initialized
		assert.NotNil(t, sys.DocumentRepository())
		assert.NotNil(t, sys.TaskRepository())
		assert.NotNil(t, sys.SectionRepository())
		assert.NotNil(t, sys.GraphStore())
		assert.NotNil(t, sys.VectorStore())
		assert.NotNil(t, sys.ObjectStore())
		assert.NotNil(t, sys.Registry())
		assert.NotNil(t, sys.backend)
		assert.NotNil(t, sys.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A plain file where the data directory should be
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		sys, err := NewSystem(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, sys)
	})

	t.Run("markdown engine is registered", func(t *testing.T) {
		tmpDir := t.TempDir()
		sys, err := NewSystem(tmpDir)
		require.NoError(t, err)
		defer sys.Close()

		found := false
		for _, e := range sys.Registry().Engines() {
			if e.Id == MarkdownEngineID {
				found = true
				assert.NotNil(t, e.FileAnalyser)
				assert.NotNil(t, e.WebsiteConverter)
			}
		}
		assert.True(t, found)
	})
}

func TestSystem_Close(t *testing.T) {
	tmpDir := t.TempDir()
	sys, err := NewSystem(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, sys)

	err = sys.Close()
	assert.NoError(t, err)
}

func TestSystem_FactoryMethods(t *testing.T) {
	tmpDir := t.TempDir()
	sys, err := NewSystem(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, sys)
	defer sys.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := sys.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create section aggregator", func(t *testing.T) {
		aggregator, err := sys.NewSectionAggregator()
		require.NoError(t, err)
		require.NotNil(t, aggregator)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := sys.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})

	t.Run("can create chunk reembedder", func(t *testing.T) {
		reembedder, err := sys.NewChunkReembedder(nil, io.Discard)
		require.NoError(t, err)
		require.NotNil(t, reembedder)
	})
}
