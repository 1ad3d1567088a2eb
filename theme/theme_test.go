package theme

import (
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ancientlore/inkwell/failure"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFuncs has every function the default theme calls.
var stubFuncs = template.FuncMap{
	"relurl":  func(s string) string { return s },
	"absurl":  func(s string) string { return s },
	"date":    func(layout string, t time.Time) string { return t.Format(layout) },
	"slugify": func(s string) string { return s },
	"prev":    func(any, string) any { return nil },
	"next":    func(any, string) any { return nil },
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestDefault(t *testing.T) {
	th := Default()
	assert.Equal(t, Builtin, th.Version)

	tpl, err := th.Parse(stubFuncs)
	require.NoError(t, err)
	for _, name := range []string{"home", "single", "list", "terms", "404", "partials/head", "partials/entries"} {
		assert.NotNil(t, tpl.Lookup(name), name)
	}

	require.NotNil(t, th.Static)
	_, err = fs.Stat(th.Static, "css/style.css")
	assert.NoError(t, err)
}

func TestLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "paper")
	writeFiles(t, dir, map[string]string{
		"templates/single.html":         `{{template "partials/title" .}}`,
		"templates/partials/title.html": `<h1>{{.}}</h1>`,
		"templates/notes/skip.html":     `{{.Broken`,
		"templates/README.md":           `not a template`,
	})

	th, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "paper", th.Name)
	assert.Equal(t, Unversioned, th.Version)
	assert.Nil(t, th.Static)

	tpl, err := th.Parse(nil)
	require.NoError(t, err)
	assert.NotNil(t, tpl.Lookup("single"))
	assert.NotNil(t, tpl.Lookup("partials/title"))
	assert.Nil(t, tpl.Lookup("notes/skip"))
}

func TestLoadThemeConfig(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"theme.toml":            "name = \"quill\"\nversion = \"1.4.0\"\n",
		"templates/single.html": `ok`,
		"static/site.js":        `console.log("hi")`,
	})

	th, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "quill", th.Name)
	assert.Equal(t, "1.4.0", th.Version)
	require.NotNil(t, th.Static)
	b, err := fs.ReadFile(th.Static, "site.js")
	require.NoError(t, err)
	assert.Contains(t, string(b), "console.log")
}

func TestLoadGitVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"theme.toml":            "version = \"1.4.0\"\n",
		"templates/single.html": `ok`,
	})

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.AddGlob("."))
	hash, err := w.Commit("Initial theme", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	th, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String()[:12], th.Version)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	var ioErr *failure.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestParseError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"templates/single.html": `{{.Title`,
	})
	th, err := Load(dir)
	require.NoError(t, err)

	_, err = th.Parse(nil)
	var rerr *failure.RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "single", rerr.Template)
}

func TestParseWithoutTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"static/site.css": "body{}"})
	th, err := Load(dir)
	require.NoError(t, err)

	tpl, err := th.Parse(stubFuncs)
	require.NoError(t, err)
	assert.Nil(t, tpl.Lookup("single"))
}
