package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultWrapWidth is used when the terminal width is unknown.
const DefaultWrapWidth = 80

// RenderMarkdown renders prototype and command descriptions for a terminal.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWrapWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(rendered, "\n") + "\n", nil
}

// Summary returns the plain text of the first paragraph or heading in a
// markdown document, with inline markup removed.
func Summary(content string) string {
	src := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		switch block.Kind() {
		case ast.KindParagraph, ast.KindHeading:
		default:
			continue
		}
		_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if t, ok := n.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		})
		break
	}
	return strings.TrimSpace(sb.String())
}

func markdownStyle() ansi.StyleConfig {
	muted := strPtr("8")
	var accent *string
	if color, ok := AccentColor(); ok {
		accent = strPtr(color)
	}

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{Margin: uintPtr(0)},
		Paragraph: ansi.StyleBlock{},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: accent, Bold: boolPtr(true)},
		},
		List:   ansi.StyleList{LevelIndent: 2},
		Item:   ansi.StylePrimitive{BlockPrefix: "• "},
		Emph:   ansi.StylePrimitive{Italic: boolPtr(true)},
		Strong: ansi.StylePrimitive{Bold: boolPtr(true)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: accent},
		},
		Link:     ansi.StylePrimitive{Color: muted, Underline: boolPtr(true)},
		LinkText: ansi.StylePrimitive{Bold: boolPtr(true)},
	}
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func uintPtr(v uint) *uint { return &v }
