package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// renderMarkdown renders assistant markdown for terminal display: headings
// and inline emphasis are styled, code blocks are indented, paragraphs are
// wrapped to width. Unknown constructs fall back to their plain text.
func renderMarkdown(src string, width int) string {
	if width < 10 {
		width = 10
	}
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if rendered := renderBlock(node, source, width, 0); rendered != "" {
			blocks = append(blocks, rendered)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func renderBlock(node ast.Node, source []byte, width, indent int) string {
	pad := strings.Repeat(" ", indent)

	switch n := node.(type) {
	case *ast.Heading:
		return pad + mdHeadingStyle.Render(strings.Repeat("#", n.Level)+" "+renderInline(n, source))

	case *ast.Paragraph, *ast.TextBlock:
		wrapped := wordwrap.String(renderInline(node, source), width-indent)
		return indentLines(wrapped, pad)

	case *ast.FencedCodeBlock:
		return renderCodeLines(n.Lines(), source, pad+"  ")

	case *ast.CodeBlock:
		return renderCodeLines(n.Lines(), source, pad+"  ")

	case *ast.List:
		var items []string
		marker := 0
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker++
			bullet := "- "
			if n.IsOrdered() {
				bullet = fmt.Sprintf("%d. ", marker)
			}
			var parts []string
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				if rendered := renderBlock(child, source, width, indent+len(bullet)); rendered != "" {
					parts = append(parts, rendered)
				}
			}
			body := strings.Join(parts, "\n")
			body = strings.TrimPrefix(body, pad+strings.Repeat(" ", len(bullet)))
			items = append(items, pad+bullet+body)
		}
		return strings.Join(items, "\n")

	case *ast.Blockquote:
		var parts []string
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if rendered := renderBlock(child, source, width-2, 0); rendered != "" {
				parts = append(parts, rendered)
			}
		}
		return indentLines(strings.Join(parts, "\n"), pad+"> ")

	case *ast.ThematicBreak:
		return pad + strings.Repeat("─", min(width-indent, 40))

	default:
		if node.Type() == ast.TypeBlock {
			return indentLines(wordwrap.String(renderInline(node, source), width-indent), pad)
		}
		return ""
	}
}

func renderCodeLines(lines *text.Segments, source []byte, pad string) string {
	var out []string
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		out = append(out, pad+mdCodeStyle.Render(line))
	}
	return strings.Join(out, "\n")
}

// renderInline flattens a node's inline children to styled text.
func renderInline(node ast.Node, source []byte) string {
	var b strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() {
				b.WriteByte(' ')
			}
			if n.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.CodeSpan:
			b.WriteString(mdCodeStyle.Render(string(n.Text(source))))
		case *ast.Emphasis:
			inner := renderInline(n, source)
			if n.Level >= 2 {
				b.WriteString(mdStrongStyle.Render(inner))
			} else {
				b.WriteString(mdEmphStyle.Render(inner))
			}
		case *ast.Link:
			b.WriteString(renderInline(n, source))
			b.WriteString(" (" + string(n.Destination) + ")")
		case *ast.AutoLink:
			b.Write(n.URL(source))
		case *ast.Image:
			b.WriteString("[image: " + string(n.Destination) + "]")
		default:
			b.WriteString(renderInline(child, source))
		}
	}
	return b.String()
}

func indentLines(s, pad string) string {
	if pad == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}
