// Package theme loads the templates and static assets that give a site its
// look. A theme is a directory (or the embedded default) laid out as
//
//	templates/*.html           page templates: home, single, list, terms, 404
//	templates/partials/*.html  partials, named "partials/<name>"
//	static/**                  copied verbatim into the output
//	theme.toml                 optional: name and version
//
// Themes are read-only.
package theme

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ancientlore/inkwell/failure"
	"github.com/go-git/go-git/v5"
	"github.com/pelletier/go-toml/v2"
)

const (
	templateDir = "templates"
	partialDir  = "templates/partials"
	staticDir   = "static"
	configFile  = "theme.toml"
)

// Version placeholders when no better one is known.
const (
	Unversioned = "unversioned"
	Builtin     = "builtin"
)

//go:embed all:default
var defaultFS embed.FS

// Theme is a loaded theme.
type Theme struct {
	Name    string
	Version string // git HEAD of the theme directory, theme.toml version, or a placeholder
	FS      fs.FS  // theme root
	Static  fs.FS  // static assets; nil when the theme has none
}

// info is the content of theme.toml.
type info struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Default returns the embedded theme.
func Default() *Theme {
	root, err := fs.Sub(defaultFS, "default")
	if err != nil {
		panic(err)
	}
	t := &Theme{Name: "default", Version: Builtin, FS: root}
	t.Static = subdir(root, staticDir)
	return t
}

// Load reads the theme in dir.
func Load(dir string) (*Theme, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &failure.IOError{Op: "open theme", Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &failure.IOError{Op: "open theme", Path: dir, Err: errors.New("not a directory")}
	}
	root := os.DirFS(dir)
	t := &Theme{
		Name:    filepath.Base(dir),
		Version: Unversioned,
		FS:      root,
		Static:  subdir(root, staticDir),
	}

	b, err := fs.ReadFile(root, configFile)
	switch {
	case err == nil:
		var ti info
		if err := toml.Unmarshal(b, &ti); err != nil {
			return nil, &failure.IOError{Op: "read theme", Path: filepath.Join(dir, configFile), Err: err}
		}
		if ti.Name != "" {
			t.Name = ti.Name
		}
		if ti.Version != "" {
			t.Version = ti.Version
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, &failure.IOError{Op: "read theme", Path: filepath.Join(dir, configFile), Err: err}
	}

	if v, ok := gitVersion(dir); ok {
		t.Version = v
	}
	return t, nil
}

// gitVersion returns the abbreviated HEAD commit when dir is the root of a
// git repository with at least one commit.
func gitVersion(dir string) (string, bool) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", false
	}
	ref, err := repo.Head()
	if err != nil {
		return "", false
	}
	return ref.Hash().String()[:12], true
}

// subdir returns the named directory of root, or nil if it does not exist.
func subdir(root fs.FS, name string) fs.FS {
	fi, err := fs.Stat(root, name)
	if err != nil || !fi.IsDir() {
		return nil
	}
	sub, err := fs.Sub(root, name)
	if err != nil {
		return nil
	}
	return sub
}

// Parse parses every template of the theme with the given functions. A
// template's name is its path under templates/ without the extension, so
// templates/single.html is "single" and templates/partials/nav.html is
// "partials/nav". A theme without templates/ parses to an empty set.
func (t *Theme) Parse(funcs template.FuncMap) (*template.Template, error) {
	root := template.New(t.Name).Funcs(funcs)
	if _, err := fs.Stat(t.FS, templateDir); errors.Is(err, fs.ErrNotExist) {
		return root, nil
	}
	err := fs.WalkDir(t.FS, templateDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &failure.IOError{Op: "read theme", Path: p, Err: err}
		}
		if d.IsDir() {
			if p != templateDir && p != partialDir {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) != ".html" {
			return nil
		}
		b, err := fs.ReadFile(t.FS, p)
		if err != nil {
			return &failure.IOError{Op: "read theme", Path: p, Err: err}
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, templateDir+"/"), ".html")
		if _, err := root.New(name).Parse(string(b)); err != nil {
			return &failure.RenderError{Path: p, Template: name, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", t.Name, err)
	}
	return root, nil
}
