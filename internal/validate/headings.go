package validate

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one heading found in a generated document.
type Heading struct {
	Level int
	Text  string
	// Line is the zero-based line index of the heading in the source.
	Line int
}

// ExtractHeadings parses Markdown with goldmark and returns every
// heading with its source line index, in document order.
func ExtractHeadings(doc string) []Heading {
	src := []byte(doc)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var headings []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		line := 0
		if lines.Len() > 0 {
			line = lineIndex(src, lines.At(0).Start)
		}
		headings = append(headings, Heading{
			Level: h.Level,
			Text:  strings.TrimSpace(string(h.Text(src))),
			Line:  line,
		})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// lineIndex converts a byte offset into a zero-based line index.
func lineIndex(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	line := 0
	for _, b := range src[:offset] {
		if b == '\n' {
			line++
		}
	}
	return line
}
