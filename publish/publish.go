// Package publish writes a rendered site to its output directory. Each build
// is written to a sibling staging directory and swapped in with renames, so
// the output is always either the previous build or the new one.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/render"
	"github.com/google/uuid"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/tdewolff/minify/v2/xml"
	"go.uber.org/zap"
)

// mediaTypes maps the extensions the minifier understands to media types.
var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".xml":  "application/xml",
}

// Publisher writes manifests to an Output.
type Publisher struct {
	Output *Output
	Minify bool // minify pages by extension
	Logger *zap.Logger
}

// Publish writes m to a staging directory and swaps it in. On error the
// staging directory is removed and the output is left untouched.
func (p *Publisher) Publish(ctx context.Context, m *render.Manifest) (err error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := p.Output.Dir()
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return &failure.IOError{Op: "create", Path: filepath.Dir(dir), Err: err}
	}
	staging := dir + ".staging-" + uuid.NewString()
	if err := os.Mkdir(staging, 0o755); err != nil {
		return &failure.IOError{Op: "create staging", Path: staging, Err: err}
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := os.RemoveAll(staging); rerr != nil {
			logger.Warn("Failed to remove staging directory", zap.String("staging", staging), zap.Error(rerr))
		}
	}()

	for _, a := range m.Assets {
		if err := copyAssets(ctx, staging, a); err != nil {
			return err
		}
	}

	var mini *minify.M
	if p.Minify {
		mini = newMinifier()
	}
	for _, pg := range m.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := pg.Data
		if mt, ok := mediaTypes[path.Ext(pg.Path)]; ok && mini != nil {
			data, err = mini.Bytes(mt, pg.Data)
			if err != nil {
				return &failure.IOError{Op: "minify", Path: pg.Path, Err: err}
			}
		}
		if err := writeFile(staging, pg.Path, data); err != nil {
			return err
		}
	}

	gen, prev, err := p.Output.swap(staging)
	if err != nil {
		return err
	}
	if prev != "" {
		if err := os.RemoveAll(prev); err != nil {
			logger.Warn("Failed to remove previous output", zap.String("path", prev), zap.Error(err))
		}
	}
	logger.Debug("Published output",
		zap.String("output", dir),
		zap.Uint64("generation", gen),
		zap.Int("pages", len(m.Pages)))
	return nil
}

func newMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{KeepDocumentTags: true, KeepEndTags: true})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), json.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]xml$"), xml.Minify)
	return m
}

// writeFile writes data to the slash-separated name under root.
func writeFile(root, name string, data []byte) error {
	if !fs.ValidPath(name) || name == "." {
		return &failure.IOError{Op: "write", Path: name, Err: errors.New("invalid output path")}
	}
	dst := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &failure.IOError{Op: "create", Path: name, Err: err}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return &failure.IOError{Op: "write", Path: name, Err: err}
	}
	return nil
}

// copyAssets copies every file of src into root, replacing existing files.
func copyAssets(ctx context.Context, root string, src fs.FS) error {
	return fs.WalkDir(src, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return &failure.IOError{Op: "read asset", Path: name, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		b, err := fs.ReadFile(src, name)
		if err != nil {
			return &failure.IOError{Op: "read asset", Path: name, Err: err}
		}
		if err := writeFile(root, name, b); err != nil {
			return fmt.Errorf("copy asset: %w", err)
		}
		return nil
	})
}
