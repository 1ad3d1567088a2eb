package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ancientlore/inkwell/content"
	"github.com/ancientlore/inkwell/failure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newNewCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "new <path>",
		Short: "Start a new draft",
		Long: `new writes a Markdown file with TOML front matter: a title derived from the
file name, today's date, and draft = true. The path is relative to the
content directory and gets a .md extension if it has none. An existing
file is never overwritten.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			name := args[0]
			if filepath.Ext(name) == "" {
				name += ".md"
			}
			if !filepath.IsAbs(name) {
				name = filepath.Join(cfg.Path(cfg.ContentDir), name)
			}
			if err := writeDraft(name, time.Now()); err != nil {
				return err
			}
			g.logger.Debug("Created draft", zap.String("path", name))
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func writeDraft(name string, now time.Time) error {
	b, err := content.Scaffold(filepath.Base(name), now)
	if err != nil {
		return &failure.UsageError{Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return &failure.IOError{Op: "create", Path: name, Err: err}
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = errors.New("file already exists")
		}
		return &failure.IOError{Op: "create", Path: name, Err: err}
	}
	_, err = f.Write(b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &failure.IOError{Op: "write", Path: name, Err: err}
	}
	return nil
}
