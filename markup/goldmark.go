package markup

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

type goldmarkEngine struct {
	md goldmark.Markdown
}

func newGoldmark(hl *highlighter, unsafe bool) *goldmarkEngine {
	rendererOpts := []renderer.Option{gmhtml.WithXHTML()}
	if unsafe {
		rendererOpts = append(rendererOpts, gmhtml.WithUnsafe())
	}
	return &goldmarkEngine{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				highlighting.NewHighlighting(
					highlighting.WithStyle(hl.styleName),
					highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				),
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOpts...),
		),
	}
}

func (g *goldmarkEngine) convert(src []byte, w *bytes.Buffer) error {
	return g.md.Convert(src, w)
}
