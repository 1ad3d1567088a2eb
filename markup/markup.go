// Package markup converts Markdown into HTML.
//
// Two engines are available: goldmark (the default) and blackfriday. Both
// support footnotes, GitHub-style tables and strikethrough, and fenced code
// blocks highlighted by chroma with CSS classes; WriteCSS emits the matching
// stylesheet. Conversion is a pure function of the source and flags.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Engine names.
const (
	Goldmark    = "goldmark"
	Blackfriday = "blackfriday"
)

// Options configures a Markdown converter.
type Options struct {
	Engine         string // Goldmark (default) or Blackfriday
	HighlightStyle string // chroma style name; unknown names fall back to chroma's default
	Unsafe         bool   // pass raw HTML through
}

// engine renders Markdown source into w.
type engine interface {
	convert(src []byte, w *bytes.Buffer) error
}

// Markdown converts Markdown into HTML. It is safe for concurrent use.
type Markdown struct {
	engine engine
	hl     *highlighter
}

// New returns a converter for the given options.
func New(opts Options) (*Markdown, error) {
	hl := newHighlighter(opts.HighlightStyle)
	m := &Markdown{hl: hl}
	switch opts.Engine {
	case "", Goldmark:
		m.engine = newGoldmark(hl, opts.Unsafe)
	case Blackfriday:
		m.engine = &blackfridayEngine{hl: hl, unsafe: opts.Unsafe}
	default:
		return nil, fmt.Errorf("markup: unknown engine %q", opts.Engine)
	}
	return m, nil
}

// Convert renders src to HTML. When math is true, formula spans are kept
// verbatim (HTML-escaped) for a client-side renderer.
func (m *Markdown) Convert(src []byte, math bool) (template.HTML, error) {
	var spans []string
	if math {
		src, spans = protectMath(src)
	}
	var buf bytes.Buffer
	if err := m.engine.convert(src, &buf); err != nil {
		return "", fmt.Errorf("markup: %w", err)
	}
	out := buf.Bytes()
	if len(spans) > 0 {
		out = restoreMath(out, spans)
	}
	return template.HTML(out), nil
}

// WriteCSS writes the stylesheet for highlighted code blocks.
func (m *Markdown) WriteCSS(w io.Writer) error {
	return m.hl.formatter.WriteCSS(w, m.hl.style)
}

// highlighter formats code with chroma using CSS classes.
type highlighter struct {
	styleName string
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlighter(name string) *highlighter {
	if name == "" {
		name = "github"
	}
	return &highlighter{
		styleName: name,
		style:     styles.Get(name),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// format highlights code written in lang. It reports false when no lexer
// knows the language, leaving w untouched.
func (h *highlighter) format(w io.Writer, lang, code string) (bool, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return false, nil
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return false, err
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, it); err != nil {
		return false, err
	}
	_, err = buf.WriteTo(w)
	return true, err
}
