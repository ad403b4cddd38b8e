// Package markdown converts post bodies to HTML using goldmark, with
// chroma-backed syntax highlighting and mermaid diagram fences.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/mermaid"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"

	"github.com/quillhost/quill/internal/errors"
)

// Renderer converts markdown source to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// Options configure the renderer.
type Options struct {
	// HighlightStyle is a chroma style name. Empty selects the default.
	HighlightStyle string
	// Unsafe permits raw HTML in post bodies. Posts are author-owned
	// content, so the composition root enables this by default.
	Unsafe bool
}

// NewRenderer builds a configured goldmark instance. Unknown code-fence
// languages degrade to an unhighlighted <pre><code> block; mermaid fences
// are emitted as <pre class="mermaid"> and rendered to vector markup in the
// browser.
func NewRenderer(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = "github"
	}

	htmlOpts := []renderer.Option{html.WithHardWraps()}
	if opts.Unsafe {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
			&mermaid.Extender{
				RenderMode: mermaid.RenderModeClient,
			},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(htmlOpts...),
	)

	return &Renderer{md: md}
}

// Render converts markdown source to an HTML fragment.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", errors.NewParseError(
			errors.ErrCodeMarkdownRender,
			"markdown render failed",
			err,
		)
	}

	return buf.String(), nil
}
