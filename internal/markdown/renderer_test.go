package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBasicMarkdown(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render([]byte("# Title\n\nSome *emphasis* and a [link](https://example.com).\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "<em>emphasis</em>")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestRenderHighlightsKnownLanguage(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render([]byte("```go\nfunc main() {}\n```\n"))
	require.NoError(t, err)

	// Chroma emits class-annotated spans for recognized languages
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "class=")
}

func TestRenderUnknownLanguageDegradesToPlainCode(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render([]byte("```nosuchlanguage\nplain text body\n```\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "plain text body")
	assert.Contains(t, out, "<pre")
}

func TestRenderMermaidFence(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render([]byte("```mermaid\ngraph TD;\n  A-->B;\n```\n"))
	require.NoError(t, err)

	assert.Contains(t, out, `class="mermaid"`)
	assert.Contains(t, out, "A--&gt;B")
	assert.NotContains(t, out, "language-mermaid")

	// Client mode appends the mermaid.js loader after the last diagram,
	// so a page with a fence renders without extra template glue.
	assert.Contains(t, out, "mermaid.min.js")
	assert.Contains(t, out, "mermaid.initialize")

	plain, err := r.Render([]byte("no diagrams here\n"))
	require.NoError(t, err)
	assert.NotContains(t, plain, "mermaid.min.js")
}

func TestRenderGFMTable(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "<table>")
}

func TestRenderUnsafeOption(t *testing.T) {
	src := []byte("<div class=\"aside\">raw html</div>\n")

	safe := NewRenderer(Options{})
	out, err := safe.Render(src)
	require.NoError(t, err)
	assert.NotContains(t, out, "<div class=\"aside\">")

	unsafe := NewRenderer(Options{Unsafe: true})
	out, err = unsafe.Render(src)
	require.NoError(t, err)
	assert.Contains(t, out, "<div class=\"aside\">")
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		expected string
	}{
		{
			name:     "simple paragraph",
			fragment: "<p>Hello <strong>world</strong></p>",
			expected: "Hello world",
		},
		{
			name:     "scripts are invisible",
			fragment: "<p>visible</p><script>var hidden = 1;</script>",
			expected: "visible",
		},
		{
			name:     "style blocks are invisible",
			fragment: "<style>.cls { color: red }</style><p>text</p>",
			expected: "text",
		},
		{
			name:     "whitespace collapses",
			fragment: "<p>one</p>\n\n<p>  two   three </p>",
			expected: "one two three",
		},
		{
			name:     "empty fragment",
			fragment: "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractText(tt.fragment))
		})
	}
}
