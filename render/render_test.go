package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ancientlore/inkwell/content"
	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/markup"
	"github.com/ancientlore/inkwell/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = Site{
	Title:    "Field Notes",
	BaseURL:  "https://example.org/blog/",
	Author:   "Ada",
	Language: "en",
}

func item(t *testing.T, name, src string) *content.Item {
	t.Helper()
	it, err := content.ParseFile(name, []byte(src))
	require.NoError(t, err)
	return it
}

func sampleItems(t *testing.T) []*content.Item {
	return []*content.Item{
		item(t, "alpha.md", "+++\ntitle = \"Alpha Essay\"\ndate = 2023-05-01\ncategories = [\"Essays\"]\ntags = [\"go\"]\n+++\nFirst *post*.\n"),
		item(t, "beta.md", "---\ntitle: Beta Essay\ndate: 2024-02-01\ncategories: [Essays, Go Notes]\n---\nSecond post.\n"),
		item(t, "notes/gamma.md", "No front matter here.\n"),
	}
}

func newRenderer(t *testing.T, th *theme.Theme, opts Options) *Renderer {
	t.Helper()
	md, err := markup.New(markup.Options{})
	require.NoError(t, err)
	if opts.Site.Title == "" {
		opts.Site = testSite
	}
	r, err := New(th, md, opts)
	require.NoError(t, err)
	return r
}

func pageMap(m *Manifest) map[string]string {
	r := make(map[string]string, len(m.Pages))
	for _, p := range m.Pages {
		r[p.Path] = string(p.Data)
	}
	return r
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newRenderer(t, theme.Default(), Options{Workers: 4})
	a, err := r.Render(context.Background(), sampleItems(t))
	require.NoError(t, err)
	b, err := r.Render(context.Background(), sampleItems(t))
	require.NoError(t, err)
	assert.Equal(t, a.Pages, b.Pages)
}

func TestRenderLayout(t *testing.T) {
	r := newRenderer(t, theme.Default(), Options{})
	m, err := r.Render(context.Background(), sampleItems(t))
	require.NoError(t, err)
	pages := pageMap(m)

	for _, p := range []string{
		"index.html",
		"alpha/index.html",
		"beta/index.html",
		"gamma/index.html",
		"categories/index.html",
		"categories/essays/index.html",
		"categories/go-notes/index.html",
		"tags/index.html",
		"tags/go/index.html",
		"archive/index.html",
		"archive/2023/index.html",
		"archive/2024/index.html",
		"index.xml",
		"sitemap.txt",
		"404.html",
		"css/chroma.css",
	} {
		assert.Contains(t, pages, p)
	}
	assert.Len(t, m.Assets, 1)
	assert.Equal(t, "alpha/index.html", m.Pages[0].Path)

	home := pages["index.html"]
	assert.Less(t, strings.Index(home, "Beta Essay"), strings.Index(home, "Alpha Essay"))

	essays := pages["categories/essays/index.html"]
	assert.Contains(t, essays, "Alpha Essay")
	assert.Contains(t, essays, "Beta Essay")
	assert.NotContains(t, essays, "Gamma")
	assert.NotContains(t, pages["categories/go-notes/index.html"], "Alpha Essay")

	y2024 := pages["archive/2024/index.html"]
	assert.Contains(t, y2024, "Beta Essay")
	assert.NotContains(t, y2024, "Alpha Essay")
	assert.NotContains(t, pages["archive/index.html"], "Gamma")

	archive := pages["archive/index.html"]
	assert.Less(t, strings.Index(archive, "2024"), strings.Index(archive, "2023"))

	alpha := pages["alpha/index.html"]
	assert.Contains(t, alpha, "<em>post</em>")
	assert.Contains(t, alpha, `href="/blog/categories/essays/"`)
	assert.Contains(t, alpha, `href="/blog/css/chroma.css"`)
}

func TestRenderFeedAndSitemap(t *testing.T) {
	r := newRenderer(t, theme.Default(), Options{FeedItems: 1})
	m, err := r.Render(context.Background(), sampleItems(t))
	require.NoError(t, err)
	pages := pageMap(m)

	feed := pages["index.xml"]
	assert.Contains(t, feed, "<rss")
	assert.Contains(t, feed, "https://example.org/blog/beta/")
	assert.NotContains(t, feed, "https://example.org/blog/alpha/")

	sitemap := pages["sitemap.txt"]
	assert.Contains(t, sitemap, "https://example.org/blog/\n")
	assert.Contains(t, sitemap, "https://example.org/blog/alpha/\n")
	assert.Contains(t, sitemap, "https://example.org/blog/archive/2024/\n")
	assert.NotContains(t, sitemap, "404")
	assert.NotContains(t, sitemap, "index.xml")
}

func TestRenderSlugConflicts(t *testing.T) {
	r := newRenderer(t, theme.Default(), Options{})
	var rerr *failure.RenderError

	_, err := r.Render(context.Background(), []*content.Item{
		item(t, "a/index.md", "Body\n"),
		item(t, "a.md", "Body\n"),
	})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "a.md", rerr.Path)

	_, err = r.Render(context.Background(), []*content.Item{
		item(t, "tags.md", "Body\n"),
	})
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, err.Error(), "reserved")
}

func writeTheme(t *testing.T, files map[string]string) *theme.Theme {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	th, err := theme.Load(dir)
	require.NoError(t, err)
	return th
}

var minimalTheme = map[string]string{
	"templates/single.html": `{{.Page.Title}}|{{.Content}}`,
	"templates/list.html":   `{{range .List.Entries}}{{.Slug}} {{end}}`,
	"templates/home.html":   `{{range .List.Entries}}{{.Slug}} {{end}}`,
	"templates/terms.html":  `{{range .List.Terms}}{{.Name}}:{{.Count}} {{end}}`,
}

func TestRenderMinimalTheme(t *testing.T) {
	th := writeTheme(t, minimalTheme)
	r := newRenderer(t, th, Options{})
	m, err := r.Render(context.Background(), sampleItems(t))
	require.NoError(t, err)
	pages := pageMap(m)

	assert.Equal(t, "beta alpha gamma ", pages["index.html"])
	assert.Equal(t, "Essays:2 Go Notes:1 ", pages["categories/index.html"])
	assert.Equal(t, "2024:1 2023:1 ", pages["archive/index.html"])
	assert.NotContains(t, pages, "404.html")
	assert.Empty(t, m.Assets)
}

func TestRenderYearsAcrossTimeZones(t *testing.T) {
	th := writeTheme(t, minimalTheme)
	r := newRenderer(t, th, Options{})
	m, err := r.Render(context.Background(), []*content.Item{
		item(t, "a.md", "+++\ntitle = \"Alpha\"\ndate = 2020-12-31T23:00:00Z\n+++\nA\n"),
		item(t, "b.md", "+++\ntitle = \"Bravo\"\ndate = 2021-01-01T00:30:00+02:00\n+++\nB\n"),
		item(t, "c.md", "+++\ntitle = \"Charlie\"\ndate = 2020-06-01\n+++\nC\n"),
	})
	require.NoError(t, err)

	var count int
	for _, p := range m.Pages {
		if p.Path == "archive/2020/index.html" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	pages := pageMap(m)
	assert.Equal(t, "a c ", pages["archive/2020/index.html"])
	assert.Equal(t, "b ", pages["archive/2021/index.html"])
	assert.Equal(t, "2021:1 2020:2 ", pages["archive/index.html"])
}

func TestRenderUndefinedPartial(t *testing.T) {
	files := map[string]string{}
	for k, v := range minimalTheme {
		files[k] = v
	}
	files["templates/single.html"] = `{{template "partials/missing" .}}`
	r := newRenderer(t, writeTheme(t, files), Options{})

	_, err := r.Render(context.Background(), sampleItems(t)[:1])
	var rerr *failure.RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "single", rerr.Template)
	assert.Equal(t, "alpha.md", rerr.Path)
}

func TestRenderMissingTemplates(t *testing.T) {
	md, err := markup.New(markup.Options{})
	require.NoError(t, err)

	_, err = New(writeTheme(t, map[string]string{"templates/single.html": `x`}), md, Options{})
	var rerr *failure.RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "list", rerr.Template)

	_, err = New(writeTheme(t, map[string]string{"static/site.css": "body{}"}), md, Options{})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "single", rerr.Template)
	assert.ErrorIs(t, err, errMissingTemplate)

	r := newRenderer(t, writeTheme(t, minimalTheme), Options{})
	_, err = r.Render(context.Background(), []*content.Item{
		item(t, "odd.md", "+++\ntemplate = \"gallery\"\n+++\nBody\n"),
	})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "gallery", rerr.Template)
}

func TestRenderItem(t *testing.T) {
	r := newRenderer(t, writeTheme(t, minimalTheme), Options{})
	p, err := r.RenderItem(context.Background(), item(t, "hello-world.md", "Hi *there*.\n"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world/index.html", p.Path)
	assert.Equal(t, "Hello World|<p>Hi <em>there</em>.</p>\n", string(p.Data))
}

func TestRenderCanceled(t *testing.T) {
	r := newRenderer(t, theme.Default(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, sampleItems(t))
	assert.ErrorIs(t, err, context.Canceled)
}
