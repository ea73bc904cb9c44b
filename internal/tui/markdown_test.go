package tui

import (
	"strings"
	"testing"
)

func TestRenderMarkdownHeadingsAndParagraphs(t *testing.T) {
	src := "# Title\n\nSome body text here.\n\n## Sub\n\nMore."
	got := renderMarkdown(src, 80)

	if !strings.Contains(got, "# Title") {
		t.Errorf("heading missing:\n%s", got)
	}
	if !strings.Contains(got, "Some body text here.") {
		t.Errorf("paragraph missing:\n%s", got)
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	src := "Before.\n\n```go\nfunc main() {}\n```"
	got := renderMarkdown(src, 80)

	if !strings.Contains(got, "  func main() {}") {
		t.Errorf("code not indented:\n%s", got)
	}
}

func TestRenderMarkdownLists(t *testing.T) {
	src := "- one\n- two\n\n1. first\n2. second"
	got := renderMarkdown(src, 80)

	for _, want := range []string{"- one", "- two", "1. first", "2. second"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}
}

func TestRenderMarkdownWrapsLongLines(t *testing.T) {
	src := strings.Repeat("word ", 40)
	got := renderMarkdown(src, 40)

	for _, line := range strings.Split(got, "\n") {
		if len(line) > 40 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
	if !strings.Contains(got, "\n") {
		t.Error("long paragraph not wrapped")
	}
}

func TestRenderMarkdownLink(t *testing.T) {
	got := renderMarkdown("See [docs](https://example.com) please.", 80)
	if !strings.Contains(got, "docs (https://example.com)") {
		t.Errorf("link not expanded:\n%s", got)
	}
}

func TestRenderMarkdownBlockquote(t *testing.T) {
	got := renderMarkdown("> quoted wisdom", 80)
	if !strings.Contains(got, "> quoted wisdom") {
		t.Errorf("blockquote marker missing:\n%s", got)
	}
}

func TestRenderMarkdownPlainFallback(t *testing.T) {
	got := renderMarkdown("just plain text", 80)
	if !strings.Contains(got, "just plain text") {
		t.Errorf("plain text lost:\n%s", got)
	}
}
