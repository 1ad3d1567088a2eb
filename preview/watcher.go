package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventSource delivers file change events to the loop.
type EventSource interface {
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	// AddTree watches root and every directory below it.
	AddTree(root string) error
}

// Watcher is an EventSource watching directory trees with fsnotify.
type Watcher struct {
	w      *fsnotify.Watcher
	logger *zap.Logger
}

// NewWatcher watches the given directory trees. Directories that do not
// exist are skipped.
func NewWatcher(dirs []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{w: fw, logger: logger}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Not watching missing directory", zap.String("dir", dir))
			continue
		}
		if err := w.AddTree(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) Events() <-chan fsnotify.Event { return w.w.Events }
func (w *Watcher) Errors() <-chan error          { return w.w.Errors }

// AddTree implements EventSource. Directories that cannot be watched are
// logged and skipped.
func (w *Watcher) AddTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		if err := w.w.Add(path); err != nil {
			w.logger.Warn("Cannot watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}

// relevant reports whether an event should lead to a rebuild.
func relevant(ev fsnotify.Event) bool {
	if ignored(ev.Name) {
		return false
	}
	// Permission changes alone do not change content.
	return ev.Op != fsnotify.Chmod
}

// ignored reports whether path is a hidden, editor or system file.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
