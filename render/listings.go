package render

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/ancientlore/inkwell/content"
	"github.com/ancientlore/inkwell/failure"
	"github.com/gorilla/feeds"
	"go.uber.org/zap"
)

// defaultSitemap lists one URL per line. A theme may replace it with a
// sitemap.txt text template in its root.
const defaultSitemap = `{{range .}}{{.}}
{{end}}`

// listingJobs returns the home page, the category and tag pages and the year
// archive. entries must be sorted newest first.
func (r *Renderer) listingJobs(entries []*Entry) []job {
	jobs := []job{r.listJob("home", &Listing{
		Kind:      "home",
		Title:     r.site.Title,
		Permalink: "/",
		Entries:   entries,
	})}

	categories := r.taxonomy(entries, "categories", func(e *Entry) []string { return e.Categories })
	jobs = append(jobs, r.termJobs("categories", "Categories", "category", categories)...)

	tags := r.taxonomy(entries, "tags", func(e *Entry) []string { return e.Tags })
	jobs = append(jobs, r.termJobs("tags", "Tags", "tag", tags)...)

	jobs = append(jobs, r.termJobs("archive", "Archive", "year", years(entries))...)
	return jobs
}

func (r *Renderer) listJob(name string, l *Listing) job {
	return job{
		path:     outputPath(l.Permalink),
		template: name,
		data:     &Data{Site: &r.site, List: l},
	}
}

// termJobs returns the term list at /<section>/ and one page per term.
func (r *Renderer) termJobs(section, title, kind string, terms []*Term) []job {
	jobs := []job{r.listJob("terms", &Listing{
		Kind:      section,
		Title:     title,
		Permalink: "/" + section + "/",
		Terms:     terms,
	})}
	for _, t := range terms {
		jobs = append(jobs, r.listJob("list", &Listing{
			Kind:      kind,
			Title:     t.Name,
			Permalink: t.Permalink,
			Entries:   t.Entries,
		}))
	}
	return jobs
}

// taxonomy groups entries by the terms names returns, merging names with the
// same slug. Terms are sorted by name and keep the order of entries.
func (r *Renderer) taxonomy(entries []*Entry, section string, names func(*Entry) []string) []*Term {
	bySlug := make(map[string]*Term)
	var terms []*Term
	for _, e := range entries {
		for _, name := range names(e) {
			slug := content.Slugify(name)
			if slug == "" {
				r.logger.Warn("Ignoring term without a usable name",
					zap.String("path", e.Path), zap.String("section", section), zap.String("term", name))
				continue
			}
			t, ok := bySlug[slug]
			if !ok {
				t = &Term{Name: name, Slug: slug, Permalink: "/" + section + "/" + slug + "/"}
				bySlug[slug] = t
				terms = append(terms, t)
			}
			if len(t.Entries) == 0 || t.Entries[len(t.Entries)-1] != e {
				t.Entries = append(t.Entries, e)
			}
		}
	}
	slices.SortFunc(terms, func(a, b *Term) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return terms
}

// years groups dated entries by the year in their own time zone, newest
// year first. Entries keep their order within a year. Undated entries
// appear in no year.
func years(entries []*Entry) []*Term {
	byYear := make(map[int]*Term)
	var order []int
	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		n := e.Date.Year()
		t, ok := byYear[n]
		if !ok {
			y := strconv.Itoa(n)
			t = &Term{Name: y, Slug: y, Permalink: "/archive/" + y + "/"}
			byYear[n] = t
			order = append(order, n)
		}
		t.Entries = append(t.Entries, e)
	}
	// Sorting by instant does not sort by local year when offsets differ.
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(b, a) })
	terms := make([]*Term, 0, len(order))
	for _, n := range order {
		terms = append(terms, byYear[n])
	}
	return terms
}

// outputPath maps a permalink to the file that serves it.
func outputPath(permalink string) string {
	p := strings.Trim(permalink, "/")
	if p == "" {
		return "index.html"
	}
	return p + "/index.html"
}

// generated returns the files that are not rendered from page templates:
// the feed, the sitemap, the 404 page and the highlighting stylesheet.
func (r *Renderer) generated(entries []*Entry, pages []Page) ([]Page, error) {
	var out []Page

	feed, err := r.feed(entries)
	if err != nil {
		return nil, &failure.RenderError{Path: "index.xml", Err: err}
	}
	out = append(out, Page{Path: "index.xml", Data: feed})

	sitemap, err := r.sitemap(pages)
	if err != nil {
		return nil, &failure.RenderError{Path: "sitemap.txt", Template: "sitemap", Err: err}
	}
	out = append(out, Page{Path: "sitemap.txt", Data: sitemap})

	if r.tpl.Lookup("404") != nil {
		b, err := r.executeTemplate("404", &Data{
			Site:  &r.site,
			List:  &Listing{Kind: "404", Title: "Page Not Found", Permalink: "/404.html"},
			Pages: entries,
		})
		if err != nil {
			return nil, &failure.RenderError{Path: "404.html", Template: "404", Err: err}
		}
		out = append(out, Page{Path: "404.html", Data: b})
	}

	var css bytes.Buffer
	if err := r.md.WriteCSS(&css); err != nil {
		return nil, &failure.RenderError{Path: "css/chroma.css", Err: err}
	}
	out = append(out, Page{Path: "css/chroma.css", Data: css.Bytes()})
	return out, nil
}

// feed renders the RSS feed of the newest entries.
func (r *Renderer) feed(entries []*Entry) ([]byte, error) {
	n := len(entries)
	if r.opts.FeedItems > 0 && r.opts.FeedItems < n {
		n = r.opts.FeedItems
	}
	f := &feeds.Feed{
		Title:       r.site.Title,
		Link:        &feeds.Link{Href: r.urls.abs("/")},
		Description: r.site.Description,
	}
	if r.site.Author != "" {
		f.Author = &feeds.Author{Name: r.site.Author}
	}
	if n > 0 {
		f.Created = entries[0].Date
	}
	for _, e := range entries[:n] {
		link := r.urls.abs(e.Permalink())
		f.Items = append(f.Items, &feeds.Item{
			Title:       e.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: e.Description,
			Content:     string(e.Content),
			Created:     e.Date,
		})
	}
	s, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	return []byte(s), nil
}

// sitemap lists the absolute URL of every page in pages.
func (r *Renderer) sitemap(pages []Page) ([]byte, error) {
	src := defaultSitemap
	b, err := fs.ReadFile(r.theme.FS, "sitemap.txt")
	switch {
	case err == nil:
		src = string(b)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	tpl, err := template.New("sitemap").Parse(src)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Path == "index.html" {
			urls = append(urls, r.urls.abs("/"))
		} else if dir, ok := strings.CutSuffix(p.Path, "/index.html"); ok {
			urls = append(urls, r.urls.abs("/"+dir+"/"))
		}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, urls); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
