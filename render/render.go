// Package render turns content items into the pages of a site: one page per
// item plus the home page, category, tag and year listings, an RSS feed and
// a sitemap. Rendering is deterministic: the same items and theme always give
// byte-identical pages.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"runtime"

	"github.com/ancientlore/inkwell/content"
	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/markup"
	"github.com/ancientlore/inkwell/theme"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Templates every theme must define.
var requiredTemplates = []string{"single", "list", "home", "terms"}

// Reserved holds the top-level output names generated pages use. No item
// may take one of them as its slug.
var Reserved = []string{"categories", "tags", "archive", "css", "index.xml", "sitemap.txt", "404.html"}

var errMissingTemplate = errors.New("template not defined")

// Site is the site-wide information available to templates as .Site.
type Site struct {
	Title        string
	BaseURL      string
	Description  string
	Author       string
	Language     string
	ThemeVersion string
}

// Options configures a Renderer.
type Options struct {
	Site      Site
	Static    fs.FS // site static files, copied after the theme's; may be nil
	Workers   int   // parallel conversions; GOMAXPROCS when zero
	FeedItems int   // newest items in the feed; all when zero
	Logger    *zap.Logger
}

// Entry is a content item with its rendered body.
type Entry struct {
	*content.Item

	Content template.HTML
}

// Term is one category, tag or year together with its entries.
type Term struct {
	Name      string
	Slug      string
	Permalink string
	Entries   []*Entry
}

// Count returns the number of entries under the term.
func (t *Term) Count() int { return len(t.Entries) }

// Listing describes an aggregate page.
type Listing struct {
	Kind      string // home, categories, category, tags, tag, archive, year or 404
	Title     string
	Permalink string
	Entries   []*Entry // for home and term pages
	Terms     []*Term  // for term lists
}

// Data is what is passed to page templates.
type Data struct {
	Site    *Site
	Page    *Entry        // the page being rendered, nil for listings
	List    *Listing      // the listing being rendered, nil for pages
	Pages   []*Entry      // every entry, newest first
	Content template.HTML // the page's rendered Markdown
}

// Page is one output file.
type Page struct {
	Path string // slash-separated, relative to the output root
	Data []byte
}

// Manifest is everything a build writes to the output directory.
type Manifest struct {
	Pages  []Page
	Assets []fs.FS // copied in order before the pages
}

// Renderer renders a site with one theme. It is safe for concurrent use.
type Renderer struct {
	theme  *theme.Theme
	md     *markup.Markdown
	tpl    *template.Template
	site   Site
	urls   urlMaker
	opts   Options
	logger *zap.Logger
}

// New parses the theme's templates. It fails with a *failure.RenderError when
// a required template is missing.
func New(th *theme.Theme, md *markup.Markdown, opts Options) (*Renderer, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	urls, err := newURLMaker(opts.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("render: base URL: %w", err)
	}
	r := &Renderer{
		theme:  th,
		md:     md,
		site:   opts.Site,
		urls:   urls,
		opts:   opts,
		logger: opts.Logger,
	}
	if r.site.ThemeVersion == "" {
		r.site.ThemeVersion = th.Version
	}
	r.tpl, err = th.Parse(r.funcs())
	if err != nil {
		return nil, err
	}
	for _, name := range requiredTemplates {
		if r.tpl.Lookup(name) == nil {
			return nil, &failure.RenderError{Template: name, Err: errMissingTemplate}
		}
	}
	return r, nil
}

// job is one template execution.
type job struct {
	path     string // output path
	source   string // content path, for errors
	template string
	data     *Data
}

// Render renders the items, which must all be part of the site. Single pages
// keep the order of items; listings follow in a fixed order.
func (r *Renderer) Render(ctx context.Context, items []*content.Item) (*Manifest, error) {
	if err := checkSlugs(items); err != nil {
		return nil, err
	}

	entries, err := r.convert(ctx, items)
	if err != nil {
		return nil, err
	}
	sorted := sortByTime(entries)

	var jobs []job
	for _, e := range entries {
		jobs = append(jobs, r.singleJob(e, sorted))
	}
	jobs = append(jobs, r.listingJobs(sorted)...)

	pages, err := r.execute(ctx, jobs)
	if err != nil {
		return nil, err
	}

	extra, err := r.generated(sorted, pages)
	if err != nil {
		return nil, err
	}
	pages = append(pages, extra...)

	m := &Manifest{Pages: pages}
	for _, a := range []fs.FS{r.theme.Static, r.opts.Static} {
		if a != nil {
			m.Assets = append(m.Assets, a)
		}
	}
	r.logger.Debug("Rendered site", zap.Int("items", len(items)), zap.Int("pages", len(pages)))
	return m, nil
}

// RenderItem renders the single page of one item as if it were the only
// item of the site.
func (r *Renderer) RenderItem(ctx context.Context, it *content.Item) (Page, error) {
	entries, err := r.convert(ctx, []*content.Item{it})
	if err != nil {
		return Page{}, err
	}
	pages, err := r.execute(ctx, []job{r.singleJob(entries[0], entries)})
	if err != nil {
		return Page{}, err
	}
	return pages[0], nil
}

func (r *Renderer) singleJob(e *Entry, all []*Entry) job {
	name := "single"
	if e.Template != "" {
		name = e.Template
	}
	return job{
		path:     e.OutputPath(),
		source:   e.Path,
		template: name,
		data:     &Data{Site: &r.site, Page: e, Pages: all, Content: e.Content},
	}
}

// checkSlugs reports the first item whose slug is reserved or already taken.
func checkSlugs(items []*content.Item) error {
	seen := make(map[string]string, len(items))
	for _, it := range items {
		for _, res := range Reserved {
			if it.Slug == res {
				return &failure.RenderError{Path: it.Path, Err: fmt.Errorf("slug %q is reserved", it.Slug)}
			}
		}
		if other, ok := seen[it.Slug]; ok {
			return &failure.RenderError{Path: it.Path, Err: fmt.Errorf("slug %q is already used by %s", it.Slug, other)}
		}
		seen[it.Slug] = it.Path
	}
	return nil
}

// convert renders every item's Markdown in parallel.
func (r *Renderer) convert(ctx context.Context, items []*content.Item) ([]*Entry, error) {
	entries := make([]*Entry, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			html, err := r.md.Convert(it.Body, it.Math)
			if err != nil {
				return &failure.RenderError{Path: it.Path, Err: err}
			}
			entries[i] = &Entry{Item: it, Content: html}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// execute runs the jobs in parallel and returns their pages in job order.
func (r *Renderer) execute(ctx context.Context, jobs []job) ([]Page, error) {
	pages := make([]Page, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := r.executeTemplate(j.template, j.data)
			if err != nil {
				p := j.source
				if p == "" {
					p = j.path
				}
				return &failure.RenderError{Path: p, Template: j.template, Err: err}
			}
			pages[i] = Page{Path: j.path, Data: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *Renderer) executeTemplate(name string, data *Data) ([]byte, error) {
	if r.tpl.Lookup(name) == nil {
		return nil, errMissingTemplate
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
