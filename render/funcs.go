package render

import (
	"cmp"
	"html/template"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/ancientlore/inkwell/content"
	"go.uber.org/zap"
)

// funcs returns the functions available to theme templates. Every function
// returns a fresh slice; entry lists are shared between parallel executions.
func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"sortbyname": sortByName,
		"sortbytime": sortByTime,
		"match":      r.match,
		"filter":     r.filter,
		"join":       path.Join,
		"ext":        path.Ext,
		"prev":       prev,
		"next":       next,
		"reverse":    reverse,
		"trimsuffix": strings.TrimSuffix,
		"trimprefix": strings.TrimPrefix,
		"trimspace":  strings.TrimSpace,
		"absurl":     r.urls.abs,
		"relurl":     r.urls.rel,
		"date":       formatDate,
		"slugify":    content.Slugify,
	}
}

// sortByTime sorts the entries newest first.
func sortByTime(e []*Entry) []*Entry {
	s := slices.Clone(e)
	slices.SortStableFunc(s, func(a, b *Entry) int { return content.Compare(a.Item, b.Item) })
	return s
}

// sortByName sorts the entries by title.
func sortByName(e []*Entry) []*Entry {
	s := slices.Clone(e)
	slices.SortStableFunc(s, func(a, b *Entry) int {
		if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return s
}

// reverse reverses the order of the entries.
func reverse(e []*Entry) []*Entry {
	s := slices.Clone(e)
	slices.Reverse(s)
	return s
}

// filter keeps the entries whose source path matches one of the patterns.
func (r *Renderer) filter(e []*Entry, pat ...string) []*Entry {
	var s []*Entry
	for _, x := range e {
		if r.match(x.Path, pat...) {
			s = append(s, x)
		}
	}
	return s
}

// match uses path.Match to test for a match.
func (r *Renderer) match(s string, pat ...string) bool {
	for _, p := range pat {
		ok, err := path.Match(p, s)
		if err != nil {
			r.logger.Warn("Bad match pattern", zap.String("pattern", p), zap.Error(err))
		}
		if ok {
			return true
		}
	}
	return false
}

// next returns the entry before the one with the given slug, which is the
// newer one in a list sorted by time.
func next(e []*Entry, current string) *Entry {
	for i := range e {
		if e[i].Slug == current {
			if i > 0 {
				return e[i-1]
			}
			return nil
		}
	}
	return nil
}

// prev returns the entry after the one with the given slug.
func prev(e []*Entry, current string) *Entry {
	for i := range e {
		if e[i].Slug == current {
			if i < len(e)-1 {
				return e[i+1]
			}
			return nil
		}
	}
	return nil
}

// formatDate formats t, or returns "" for the zero time.
func formatDate(layout string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// urlMaker builds links relative to the site's base URL.
type urlMaker struct {
	origin string // scheme and host, may be empty
	prefix string // base path without trailing slash
}

func newURLMaker(baseURL string) (urlMaker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return urlMaker{}, err
	}
	var m urlMaker
	if u.Scheme != "" && u.Host != "" {
		m.origin = u.Scheme + "://" + u.Host
	}
	m.prefix = strings.TrimSuffix(u.Path, "/")
	return m, nil
}

// rel returns the path of p under the site's base path. Absolute URLs are
// returned unchanged.
func (m urlMaker) rel(p string) string {
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	return m.prefix + "/" + strings.TrimPrefix(p, "/")
}

// abs returns p as an absolute URL when the base URL has a host.
func (m urlMaker) abs(p string) string {
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	return m.origin + m.rel(p)
}
