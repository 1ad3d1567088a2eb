package markup

import (
	"bytes"
	"io"

	"github.com/russross/blackfriday/v2"
)

const blackfridayExtensions = blackfriday.CommonExtensions | blackfriday.Footnotes

type blackfridayEngine struct {
	hl     *highlighter
	unsafe bool
}

func (b *blackfridayEngine) convert(src []byte, w *bytes.Buffer) error {
	flags := blackfriday.CommonHTMLFlags | blackfriday.FootnoteReturnLinks
	if !b.unsafe {
		flags |= blackfriday.SkipHTML
	}
	// HTMLRenderer keeps per-document state, so each conversion gets its own.
	r := &codeRenderer{
		HTMLRenderer: blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: flags}),
		hl:           b.hl,
	}
	w.Write(blackfriday.Run(src, blackfriday.WithExtensions(blackfridayExtensions), blackfriday.WithRenderer(r)))
	return r.err
}

// codeRenderer highlights fenced code blocks that name a language and leaves
// everything else to the stock HTML renderer.
type codeRenderer struct {
	*blackfriday.HTMLRenderer

	hl  *highlighter
	err error
}

// RenderNode implements blackfriday.Renderer.
func (r *codeRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if node.Type == blackfriday.CodeBlock {
		if lang := codeLanguage(node.Info); lang != "" {
			ok, err := r.hl.format(w, lang, string(node.Literal))
			if err != nil && r.err == nil {
				r.err = err
			}
			if ok {
				return blackfriday.GoToNext
			}
		}
	}
	return r.HTMLRenderer.RenderNode(w, node, entering)
}

// codeLanguage returns the first word of a fence info string.
func codeLanguage(info []byte) string {
	f := bytes.Fields(info)
	if len(f) == 0 {
		return ""
	}
	return string(f[0])
}
