package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Analyser converts uploaded text-family files to markdown. Markdown and
// plain text pass through as-is; HTML files are converted the same way web
// pages are. It implements engine.FileAnalyser.
type Analyser struct {
	converter *Converter
}

// NewAnalyser creates a file analyser sharing the given converter for
// HTML uploads.
func NewAnalyser(converter *Converter) *Analyser {
	return &Analyser{converter: converter}
}

// AnalyseFile converts the named file content into markdown. The file
// extension selects the conversion.
func (a *Analyser) AnalyseFile(ctx context.Context, name string, content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("file %q is not valid utf-8 text", name)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt", "":
		return strings.TrimSpace(string(content)), nil
	case ".html", ".htm":
		markdown, err := a.converter.converter.ConvertString(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to convert %q: %w", name, err)
		}
		return cleanMarkdown(markdown), nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
}
