package markup

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const essay = "# Cardinality\n\nCounting things is hard.[^1]\n\n```go\nfunc main() {}\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n[^1]: Citation needed.\n"

func engines(t *testing.T, unsafe bool) map[string]*Markdown {
	t.Helper()
	r := make(map[string]*Markdown)
	for _, name := range []string{Goldmark, Blackfriday} {
		m, err := New(Options{Engine: name, Unsafe: unsafe})
		require.NoError(t, err)
		r[name] = m
	}
	return r
}

func TestConvertIsDeterministic(t *testing.T) {
	for name, m := range engines(t, false) {
		a, err := m.Convert([]byte(essay), true)
		require.NoError(t, err, name)
		b, err := m.Convert([]byte(essay), true)
		require.NoError(t, err, name)
		assert.Equal(t, a, b, name)
	}
}

func TestConvertFeatures(t *testing.T) {
	for name, m := range engines(t, false) {
		out, err := m.Convert([]byte(essay), false)
		require.NoError(t, err, name)
		s := string(out)
		assert.Contains(t, s, "Cardinality</h1>", name)
		assert.Contains(t, s, `class="chroma"`, name)
		assert.Contains(t, s, "footnote", name)
		assert.Contains(t, s, "Citation needed.", name)
		assert.Contains(t, s, "<table>", name)
	}
}

func TestConvertMath(t *testing.T) {
	src := "Inline $x_1 + y_1$ and $*a*$.\n\n$$\na < b\n$$\n\nCode `$y$` stays.\n\n```\n$z$\n```\n"
	for name, m := range engines(t, false) {
		out, err := m.Convert([]byte(src), true)
		require.NoError(t, err, name)
		s := string(out)
		assert.Contains(t, s, "$x_1 + y_1$", name)
		assert.Contains(t, s, "$*a*$", name)
		assert.Contains(t, s, "$$\na &lt; b\n$$", name)
		assert.Contains(t, s, "$y$", name)
		assert.Contains(t, s, "$z$", name)
		assert.NotContains(t, s, "inkwellmath", name)

		plain, err := m.Convert([]byte(src), false)
		require.NoError(t, err, name)
		assert.Contains(t, string(plain), "<em>a</em>", name)
	}
}

func TestConvertUnsafe(t *testing.T) {
	src := "before\n\n<div class=\"raw\">raw</div>\n\nafter\n"
	for name, m := range engines(t, false) {
		out, err := m.Convert([]byte(src), false)
		require.NoError(t, err, name)
		assert.NotContains(t, string(out), `<div class="raw">`, name)
	}
	for name, m := range engines(t, true) {
		out, err := m.Convert([]byte(src), false)
		require.NoError(t, err, name)
		assert.Contains(t, string(out), `<div class="raw">`, name)
	}
}

func TestUnknownEngine(t *testing.T) {
	_, err := New(Options{Engine: "pandoc"})
	assert.Error(t, err)
}

func TestWriteCSS(t *testing.T) {
	m, err := New(Options{HighlightStyle: "monokai"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, m.WriteCSS(&buf))
	assert.Contains(t, buf.String(), ".chroma")
}

func TestProtectMath(t *testing.T) {
	tests := []struct {
		in    string
		spans []string
	}{
		{`no math here`, nil},
		{`costs $5 and $10`, nil},
		{`escaped \$x\$`, nil},
		{`inline $a+b$ end`, []string{`$a+b$`}},
		{`$$x$$ and \(y\) and \[z\]`, []string{`$$x$$`, `\(y\)`, `\[z\]`}},
		{"`$code$` $m$", []string{`$m$`}},
		{"~~~\n$a$\n~~~\n$b$", []string{`$b$`}},
		{"$a\n\nb$", nil},
		{"$ a$", nil},
	}
	for _, tt := range tests {
		out, spans := protectMath([]byte(tt.in))
		assert.Equal(t, tt.spans, spans, tt.in)
		for i := range spans {
			assert.Contains(t, string(out), fmt.Sprintf(mathToken, i), tt.in)
		}
		assert.Equal(t, tt.in, strings.TrimSpace(string(restoreMath(out, spans))), tt.in)
	}
}
