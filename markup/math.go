package markup

import (
	"bytes"
	"fmt"
	"html"
)

// mathToken is the placeholder that stands in for a formula while Markdown is
// rendered. It is plain alphanumerics so neither engine alters it, and fixed
// width so no token is a prefix of another.
const mathToken = "inkwellmath%06dx"

// protectMath replaces formulas outside of code with placeholder tokens and
// returns the rewritten source together with the original spans. Recognized
// forms are $$...$$, \[...\], \(...\) and $...$.
func protectMath(src []byte) ([]byte, []string) {
	var (
		out   bytes.Buffer
		spans []string
	)
	emit := func(span []byte) {
		fmt.Fprintf(&out, mathToken, len(spans))
		spans = append(spans, string(span))
	}
	lineStart := true
	for i := 0; i < len(src); {
		if lineStart {
			if fence, ok := fenceAt(src[i:]); ok {
				n := fencedBlockLen(src[i:], fence)
				out.Write(src[i : i+n])
				i += n
				continue
			}
		}
		c := src[i]
		switch {
		case c == '`':
			n := codeSpanLen(src[i:])
			out.Write(src[i : i+n])
			i += n
			lineStart = false
			continue
		case c == '\\' && i+1 < len(src) && (src[i+1] == '[' || src[i+1] == '('):
			closer := []byte(`\]`)
			if src[i+1] == '(' {
				closer = []byte(`\)`)
			}
			if j := bytes.Index(src[i+2:], closer); j >= 0 {
				end := i + 2 + j + 2
				emit(src[i:end])
				i = end
				lineStart = false
				continue
			}
		case c == '\\' && i+1 < len(src) && src[i+1] == '$':
			out.Write(src[i : i+2])
			i += 2
			lineStart = false
			continue
		case c == '$' && i+1 < len(src) && src[i+1] == '$':
			if j := bytes.Index(src[i+2:], []byte("$$")); j >= 0 {
				end := i + 2 + j + 2
				emit(src[i:end])
				i = end
				lineStart = false
				continue
			}
		case c == '$':
			if end := inlineMathEnd(src, i); end > 0 {
				emit(src[i:end])
				i = end
				lineStart = false
				continue
			}
		}
		out.WriteByte(c)
		lineStart = c == '\n'
		i++
	}
	return out.Bytes(), spans
}

// restoreMath puts the HTML-escaped formulas back in place of their tokens.
func restoreMath(b []byte, spans []string) []byte {
	for i, s := range spans {
		b = bytes.ReplaceAll(b, []byte(fmt.Sprintf(mathToken, i)), []byte(html.EscapeString(s)))
	}
	return b
}

// fenceAt reports whether b starts with a code fence (``` or ~~~, after at
// most three spaces) and returns the fence characters.
func fenceAt(b []byte) ([]byte, bool) {
	i := 0
	for i < len(b) && i < 3 && b[i] == ' ' {
		i++
	}
	if i+3 > len(b) {
		return nil, false
	}
	c := b[i]
	if c != '`' && c != '~' {
		return nil, false
	}
	n := 0
	for i+n < len(b) && b[i+n] == c {
		n++
	}
	if n < 3 {
		return nil, false
	}
	return b[i : i+n], true
}

// fencedBlockLen returns the length of the fenced block at the start of b,
// through the closing fence line or the end of input.
func fencedBlockLen(b []byte, fence []byte) int {
	nl := bytes.IndexByte(b, '\n')
	if nl < 0 {
		return len(b)
	}
	pos := nl + 1
	for pos < len(b) {
		line := b[pos:]
		end := bytes.IndexByte(line, '\n')
		if end < 0 {
			end = len(line)
		} else {
			end++
		}
		if bytes.HasPrefix(bytes.TrimLeft(line[:end], " "), fence) {
			return pos + end
		}
		pos += end
	}
	return len(b)
}

// codeSpanLen returns the length of the inline code span at the start of b,
// or the length of the backtick run when it is never closed.
func codeSpanLen(b []byte) int {
	n := 0
	for n < len(b) && b[n] == '`' {
		n++
	}
	for i := n; i < len(b); {
		if b[i] != '`' {
			i++
			continue
		}
		m := 0
		for i+m < len(b) && b[i+m] == '`' {
			m++
		}
		if m == n {
			return i + m
		}
		i += m
	}
	return n
}

// inlineMathEnd finds the end of a $...$ formula starting at i. The opening
// $ must be followed by a non-space, the closing $ preceded by a non-space and
// not followed by a digit, and the formula may not span a blank line. It
// returns 0 when there is no formula at i.
func inlineMathEnd(src []byte, i int) int {
	if i+1 >= len(src) || isSpace(src[i+1]) {
		return 0
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '\n':
			if j+1 < len(src) && src[j+1] == '\n' {
				return 0
			}
		case '$':
			if isSpace(src[j-1]) {
				return 0
			}
			if j+1 < len(src) && src[j+1] >= '0' && src[j+1] <= '9' {
				return 0
			}
			return j + 1
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
