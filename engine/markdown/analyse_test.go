package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyser_Passthrough(t *testing.T) {
	analyser := NewAnalyser(NewConverter())
	ctx := context.Background()

	out, err := analyser.AnalyseFile(ctx, "notes.md", []byte("# Notes\n\nbody\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\nbody", out)

	out, err = analyser.AnalyseFile(ctx, "plain.txt", []byte("just text"))
	require.NoError(t, err)
	assert.Equal(t, "just text", out)
}

func TestAnalyser_HTML(t *testing.T) {
	analyser := NewAnalyser(NewConverter())

	out, err := analyser.AnalyseFile(context.Background(), "page.html",
		[]byte("<h1>Title</h1><p>Paragraph text.</p>"))
	require.NoError(t, err)
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "Paragraph text.")
}

func TestAnalyser_Rejects(t *testing.T) {
	analyser := NewAnalyser(NewConverter())
	ctx := context.Background()

	_, err := analyser.AnalyseFile(ctx, "report.pdf", []byte("%PDF-1.4"))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = analyser.AnalyseFile(ctx, "data.txt", []byte{0xff, 0xfe, 0x00})
	assert.ErrorContains(t, err, "not valid utf-8")
}
