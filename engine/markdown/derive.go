package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxDescriptionLen = 300

// DeriveTitleDescription extracts a title and description from markdown:
// the first heading and the first paragraph. Either may be empty when the
// document has no such element.
func DeriveTitleDescription(markdown string) (title, description string) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			if title == "" {
				title = nodeText(n, source)
			}
		case ast.KindParagraph:
			if description == "" {
				description = nodeText(n, source)
			}
		}
		if title != "" && description != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if len(description) > maxDescriptionLen {
		cut := maxDescriptionLen
		if idx := strings.LastIndexByte(description[:cut], ' '); idx > 0 {
			cut = idx
		}
		description = description[:cut] + "…"
	}
	return title, description
}

// nodeText collects the plain text of a node's inline children.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
