// Package site ties the pipeline together: it reads the site configuration
// and runs load, render and publish as one build.
package site

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/ancientlore/inkwell/content"
	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/markup"
	"github.com/ancientlore/inkwell/publish"
	"github.com/ancientlore/inkwell/render"
	"github.com/ancientlore/inkwell/theme"
	"go.uber.org/zap"
)

// Builder runs the build pipeline for one site.
type Builder struct {
	Config *Config
	Output *publish.Output
	Drafts bool // include drafts
	Strict bool // abort on the first unparsable content file
	Minify bool
	Logger *zap.Logger
}

// Result summarizes a successful build.
type Result struct {
	Pages      int
	Skipped    []*failure.ParseError // content files left out of the build
	Duration   time.Duration
	Generation uint64 // output generation after the swap
}

// NewBuilder returns a builder writing to the configured output directory.
func NewBuilder(cfg *Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		Config: cfg,
		Output: publish.NewOutput(cfg.Path(cfg.OutputDir)),
		Strict: cfg.Build.Strict,
		Minify: cfg.Build.Minify,
		Logger: logger,
	}
}

// Build loads the content, renders it and publishes the result. The theme
// and templates are read again on every build. Any error leaves the output
// as it was.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger := b.logger()
	cfg := b.Config

	th, err := b.theme()
	if err != nil {
		return nil, err
	}
	md, err := markup.New(markup.Options{
		Engine:         cfg.Markup.Engine,
		HighlightStyle: cfg.Markup.HighlightStyle,
		Unsafe:         cfg.Markup.Unsafe,
	})
	if err != nil {
		return nil, &failure.UsageError{Err: err}
	}
	r, err := render.New(th, md, render.Options{
		Site: render.Site{
			Title:        cfg.Title,
			BaseURL:      cfg.BaseURL,
			Description:  cfg.Description,
			Author:       cfg.Author,
			Language:     cfg.Language,
			ThemeVersion: th.Version,
		},
		Static:    dirFS(cfg.Path(cfg.StaticDir)),
		Workers:   cfg.Build.Workers,
		FeedItems: cfg.FeedItems,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	items, err := b.load(ctx, res)
	if err != nil {
		return nil, err
	}

	m, err := r.Render(ctx, items)
	if err != nil {
		return nil, err
	}
	p := &publish.Publisher{Output: b.Output, Minify: b.Minify, Logger: logger}
	if err := p.Publish(ctx, m); err != nil {
		return nil, err
	}

	res.Pages = len(m.Pages)
	res.Duration = time.Since(start)
	res.Generation = b.Output.Generation()
	logger.Info("Built site",
		zap.Int("items", len(items)),
		zap.Int("pages", res.Pages),
		zap.Int("skipped", len(res.Skipped)),
		zap.String("theme", th.Name),
		zap.String("themeVersion", th.Version),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// load collects the content items. Parse errors are recorded in res, or
// returned in strict mode; any other error is returned.
func (b *Builder) load(ctx context.Context, res *Result) ([]*content.Item, error) {
	dir := b.Config.Path(b.Config.ContentDir)
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &failure.IOError{Op: "open content", Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &failure.IOError{Op: "open content", Path: dir, Err: errors.New("not a directory")}
	}

	l := &content.Loader{FS: os.DirFS(dir), Drafts: b.Drafts, Logger: b.logger()}
	var items []*content.Item
	for it, err := range l.Items(ctx) {
		if err != nil {
			var pe *failure.ParseError
			if !errors.As(err, &pe) || b.Strict {
				return nil, err
			}
			b.logger().Warn("Skipping content file", zap.String("path", pe.Path), zap.Error(pe.Err))
			res.Skipped = append(res.Skipped, pe)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (b *Builder) theme() (*theme.Theme, error) {
	if b.Config.ThemeDir == "" {
		return theme.Default(), nil
	}
	return theme.Load(b.Config.Path(b.Config.ThemeDir))
}

// WatchDirs returns the directories whose changes call for a rebuild.
func (b *Builder) WatchDirs() []string {
	cfg := b.Config
	dirs := []string{cfg.Path(cfg.ContentDir), cfg.Path(cfg.StaticDir)}
	if cfg.ThemeDir != "" {
		dirs = append(dirs, cfg.Path(cfg.ThemeDir))
	}
	return dirs
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// dirFS returns the directory as a file system, or nil if it does not exist.
func dirFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}
