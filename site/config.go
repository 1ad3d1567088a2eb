package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/markup"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the name of the site configuration file.
const ConfigFile = "inkwell.toml"

// Config contains configuration data from the inkwell.toml file.
type Config struct {
	Title       string `toml:"title"`
	BaseURL     string `toml:"baseURL"`
	Description string `toml:"description"`
	Author      string `toml:"author"`
	Language    string `toml:"language"`
	ContentDir  string `toml:"contentDir"`
	StaticDir   string `toml:"staticDir"`
	ThemeDir    string `toml:"themeDir"` // empty for the embedded theme
	OutputDir   string `toml:"outputDir"`
	FeedItems   int    `toml:"feedItems"`

	Markup  MarkupConfig      `toml:"markup"`
	Build   BuildConfig       `toml:"build"`
	Serve   ServeConfig       `toml:"serve"`
	Headers map[string]string `toml:"headers"` // extra response headers in preview

	// Root is the directory holding the configuration file. Relative
	// directories above are resolved against it.
	Root string `toml:"-"`
}

// MarkupConfig selects and tunes the Markdown engine.
type MarkupConfig struct {
	Engine         string `toml:"engine"`
	HighlightStyle string `toml:"highlightStyle"`
	Unsafe         bool   `toml:"unsafe"`
}

// BuildConfig holds defaults for builds.
type BuildConfig struct {
	Strict  bool `toml:"strict"`
	Workers int  `toml:"workers"`
	Minify  bool `toml:"minify"`
}

// ServeConfig holds defaults for the preview server.
type ServeConfig struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Debounce Duration `toml:"debounce"`
}

// DefaultConfig returns the configuration used for keys the file leaves out.
func DefaultConfig() *Config {
	return &Config{
		Title:      "Essays",
		Language:   "en",
		ContentDir: "content",
		StaticDir:  "static",
		OutputDir:  "public",
		FeedItems:  20,
		Markup: MarkupConfig{
			Engine:         markup.Goldmark,
			HighlightStyle: "github",
		},
		Serve: ServeConfig{
			Host:     "127.0.0.1",
			Port:     1313,
			Debounce: Duration(300 * time.Millisecond),
		},
		Root: ".",
	}
}

// LoadConfig reads the configuration file at path. It is not an error if the
// file does not exist; the defaults are returned. Problems with the file are
// reported as *failure.UsageError.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Dir(path)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, &failure.UsageError{Err: fmt.Errorf("cannot read config file: %w", err)}
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, &failure.UsageError{Err: fmt.Errorf("cannot parse config file %s: %w", path, err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	var errs []error
	switch c.Markup.Engine {
	case markup.Goldmark, markup.Blackfriday:
	default:
		errs = append(errs, fmt.Errorf("markup.engine: unknown engine %q", c.Markup.Engine))
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port: %d is out of range", c.Serve.Port))
	}
	if c.Serve.Debounce < 0 {
		errs = append(errs, fmt.Errorf("serve.debounce: %s is negative", c.Serve.Debounce))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers: %d is negative", c.Build.Workers))
	}
	if c.ContentDir == "" {
		errs = append(errs, errors.New("contentDir: must not be empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("outputDir: must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return &failure.UsageError{Err: fmt.Errorf("invalid config: %w", err)}
	}
	return nil
}

// Path resolves a configured directory against Root.
func (c *Config) Path(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Root, dir)
}
