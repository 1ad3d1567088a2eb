package content

import (
	"cmp"
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/ancientlore/inkwell/failure"
)

// Item is one Markdown source file. It is immutable once loaded.
type Item struct {
	FrontMatter

	Path string // slash-separated, relative to the content root
	Body []byte // Markdown without the front matter block
}

// Permalink is the site-relative URL of the item's page.
func (it *Item) Permalink() string {
	return "/" + it.Slug + "/"
}

// OutputPath is where the item's page is written, relative to the output root.
func (it *Item) OutputPath() string {
	return it.Slug + "/index.html"
}

// ParseFile splits and decodes the front matter of a content file named name.
// Failures are returned as *failure.ParseError.
func ParseFile(name string, b []byte) (*Item, error) {
	f, raw, body, err := extractFrontMatter(b)
	if err != nil {
		return nil, &failure.ParseError{Path: name, Err: err}
	}
	m, err := decodeFrontMatter(f, raw)
	if err != nil {
		return nil, &failure.ParseError{Path: name, Err: err}
	}
	fm, err := newFrontMatter(m)
	if err != nil {
		return nil, &failure.ParseError{Path: name, Err: err}
	}

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "index" || base == "_index" {
		if d := path.Base(path.Dir(name)); d != "." && d != "/" {
			base = d
		}
	}
	if fm.Slug == "" {
		fm.Slug = base
	}
	fm.Slug = Slugify(fm.Slug)
	if fm.Slug == "" {
		return nil, &failure.ParseError{Path: name, Err: errors.New("slug is empty after normalization")}
	}
	if fm.Title == "" {
		fm.Title = titleFromSlug(base)
	}
	return &Item{
		FrontMatter: fm,
		Path:        name,
		Body:        body,
	}, nil
}

// Compare orders items newest first, then by slug.
func Compare(a, b *Item) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Slug, b.Slug)
}

// Sort sorts items newest first, breaking ties by slug.
func Sort(items []*Item) {
	slices.SortStableFunc(items, Compare)
}
