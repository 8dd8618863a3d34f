package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tessera/core"
)

func collectChunks(t *testing.T, stream *ChunkStream) []*core.Chunk {
	t.Helper()
	var chunks []*core.Chunk
	for stream.Next(context.Background()) {
		chunks = append(chunks, stream.Chunk())
	}
	require.NoError(t, stream.Err())
	return chunks
}

func TestChunkStream_DeterministicIDs(t *testing.T) {
	documentID := core.ID(42)
	text := strings.Repeat("Badger stores keys and values in separate log files. ", 200)

	first, err := NewChunkStream(documentID, text, nil, WithChunkSize(400), WithChunkOverlap(40))
	require.NoError(t, err)
	second, err := NewChunkStream(documentID, text, nil, WithChunkSize(400), WithChunkOverlap(40))
	require.NoError(t, err)

	chunksA := collectChunks(t, first)
	chunksB := collectChunks(t, second)
	require.NotEmpty(t, chunksA)
	require.Equal(t, len(chunksA), len(chunksB))

	for i := range chunksA {
		assert.Equal(t, chunksA[i].Id, chunksB[i].Id)
		assert.Equal(t, i, chunksA[i].Index)
	}
}

func TestChunkStream_EmptyContent(t *testing.T) {
	_, err := NewChunkStream(core.ID(1), "   \n\t ", nil)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestChunkStream_SupersededAborts(t *testing.T) {
	calls := 0
	checker := ActivityCheckerFunc(func(ctx context.Context, documentID core.ID) (bool, error) {
		calls++
		return calls < 3, nil
	})

	stream, err := NewChunkStream(core.ID(7), strings.Repeat("some text to chunk. ", 500), checker,
		WithChunkSize(100), WithPollInterval(0))
	require.NoError(t, err)

	ctx := context.Background()
	produced := 0
	for stream.Next(ctx) {
		produced++
	}
	assert.ErrorIs(t, stream.Err(), core.ErrSuperseded)
	assert.Equal(t, 2, produced)
}

func TestChunkStream_IndexMonotonicAcrossSegments(t *testing.T) {
	// Text longer than one segment forces the splitter to run per segment
	// while the global index keeps increasing.
	text := strings.Repeat("sentence about storage engines and their trade-offs. ", 4000)
	require.Greater(t, len(text), maxSegmentChars)

	stream, err := NewChunkStream(core.ID(9), text, nil, WithChunkSize(1000), WithChunkOverlap(0))
	require.NoError(t, err)

	chunks := collectChunks(t, stream)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, core.ChunkID(core.ID(9), i, chunk.Text), chunk.Id)
	}
}

func TestSplitSegments_RuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 10)
	segments := splitSegments(text, 7)

	var rebuilt strings.Builder
	for _, segment := range segments {
		assert.LessOrEqual(t, len([]rune(segment)), 7)
		rebuilt.WriteString(segment)
	}
	assert.Equal(t, text, rebuilt.String())
}
