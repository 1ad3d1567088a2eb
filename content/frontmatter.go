package content

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FrontMatter holds the metadata block of a content file.
type FrontMatter struct {
	Title       string         // Title of the page
	Date        time.Time      // Date the article appears
	Slug        string         // URL name of the page
	Categories  []string       // Categories, sorted and unique
	Tags        []string       // Tags, sorted and unique
	Draft       bool           // Excluded from production builds
	Math        bool           // Formulas are passed through for client-side rendering
	Template    string         // Overrides the single-page template
	Description string         // Summary used in listings and feeds
	Params      map[string]any // Any keys not listed above
}

// ErrMissingClosingDelimiter is returned when a front matter block is opened
// but never closed.
var ErrMissingClosingDelimiter = errors.New("front matter: missing closing delimiter")

type format int

const (
	formatNone format = iota
	formatTOML
	formatYAML
)

func (f format) String() string {
	switch f {
	case formatTOML:
		return "toml"
	case formatYAML:
		return "yaml"
	}
	return "none"
}

// delimiters maps a front matter fence to its encoding.
var delimiters = map[string]format{
	"+++": formatTOML,
	"---": formatYAML,
}

// extractFrontMatter splits the front matter and Markdown content. The fence
// must be the first non-blank line; a document without one is all body.
func extractFrontMatter(x []byte) (f format, fm, body []byte, err error) {
	rest := x
	// skip leading blank lines
	for len(rest) > 0 {
		line, next := cutLine(rest)
		if len(bytes.TrimSpace(line)) > 0 {
			break
		}
		rest = next
	}
	first, rest := cutLine(rest)
	fence := string(bytes.TrimSpace(first))
	f, ok := delimiters[fence]
	if !ok {
		return formatNone, nil, x, nil
	}
	start := rest
	offset := 0
	for len(rest) > 0 {
		line, next := cutLine(rest)
		if string(bytes.TrimSpace(line)) == fence {
			fm = bytes.TrimSpace(start[:offset])
			body = bytes.TrimLeft(next, "\r\n")
			return f, fm, body, nil
		}
		offset += len(rest) - len(next)
		rest = next
	}
	return f, nil, nil, ErrMissingClosingDelimiter
}

// cutLine returns the first line of b, without its terminator, and the remainder.
func cutLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:]
	}
	return b, nil
}

// decodeFrontMatter unmarshals raw front matter into a generic map.
func decodeFrontMatter(f format, raw []byte) (map[string]any, error) {
	m := make(map[string]any)
	if len(raw) == 0 {
		return m, nil
	}
	var err error
	switch f {
	case formatTOML:
		err = toml.Unmarshal(raw, &m)
	case formatYAML:
		err = yaml.Unmarshal(raw, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("front matter (%s): %w", f, err)
	}
	return m, nil
}

// newFrontMatter converts decoded metadata into a FrontMatter. Keys are
// matched case-insensitively.
func newFrontMatter(m map[string]any) (FrontMatter, error) {
	var (
		fm  FrontMatter
		err error
	)
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		switch strings.ToLower(k) {
		case "title":
			fm.Title, err = asString(k, v)
		case "date":
			fm.Date, err = asTime(k, v)
		case "slug":
			fm.Slug, err = asString(k, v)
		case "categories", "category":
			fm.Categories, err = asStrings(k, v)
		case "tags":
			fm.Tags, err = asStrings(k, v)
		case "draft":
			fm.Draft, err = asBool(k, v)
		case "math":
			fm.Math, err = asBool(k, v)
		case "template", "layout":
			fm.Template, err = asString(k, v)
		case "description", "summary":
			fm.Description, err = asString(k, v)
		default:
			if fm.Params == nil {
				fm.Params = make(map[string]any)
			}
			fm.Params[strings.ToLower(k)] = v
		}
		if err != nil {
			return FrontMatter{}, err
		}
	}
	fm.Categories = uniqueSorted(fm.Categories)
	fm.Tags = uniqueSorted(fm.Tags)
	return fm, nil
}

func asString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return strings.TrimSpace(s), nil
}

func asBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected boolean, got %T", key, v)
	}
	return b, nil
}

func asStrings(key string, v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		r := make([]string, 0, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", key, i, e)
			}
			r = append(r, s)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%s: expected list of strings, got %T", key, v)
}

// dateLayouts are tried in order for dates given as strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime accepts TOML date types, YAML strings and offset timestamps. Dates
// without a zone are taken as UTC so builds do not depend on the machine.
func asTime(key string, v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case toml.LocalDate:
		return x.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return x.AsTime(time.UTC), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%s: cannot parse %q as a date", key, s)
	}
	return time.Time{}, fmt.Errorf("%s: expected date, got %T", key, v)
}

// uniqueSorted trims, de-duplicates and sorts a list of names.
func uniqueSorted(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(s))
	r := make([]string, 0, len(s))
	for _, e := range s {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		r = append(r, e)
	}
	slices.Sort(r)
	return r
}
