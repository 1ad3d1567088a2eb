package content

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ancientlore/inkwell/failure"
)

// markdownExtensions are the file extensions treated as content.
var markdownExtensions = []string{".md", ".markdown"}

// Loader reads content items from a tree of Markdown files.
type Loader struct {
	FS     fs.FS       // content root
	Drafts bool        // include items marked draft
	Logger *zap.Logger // optional
}

// errStop ends a walk early when the consumer stops ranging.
var errStop = errors.New("stop")

// Items returns a lazy sequence over the content tree in lexical path order.
// Each step yields either an item or an error: *failure.ParseError for a file
// that could not be parsed (the sequence continues), *failure.IOError for a
// read failure, or the context error when ctx is done.
func (l *Loader) Items(ctx context.Context) iter.Seq2[*Item, error] {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(yield func(*Item, error) bool) {
		_ = fs.WalkDir(l.FS, ".", func(name string, d fs.DirEntry, err error) error {
			if cerr := ctx.Err(); cerr != nil {
				yield(nil, cerr)
				return errStop
			}
			if err != nil {
				if !yield(nil, &failure.IOError{Op: "read", Path: name, Err: err}) {
					return errStop
				}
				return nil
			}
			if name != "." && isHidden(d) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !isMarkdown(name) {
				return nil
			}
			b, err := fs.ReadFile(l.FS, name)
			if err != nil {
				if !yield(nil, &failure.IOError{Op: "read", Path: name, Err: err}) {
					return errStop
				}
				return nil
			}
			item, err := ParseFile(name, b)
			if err != nil {
				if !yield(nil, err) {
					return errStop
				}
				return nil
			}
			if item.Draft && !l.Drafts {
				logger.Debug("skipping draft", zap.String("path", name))
				return nil
			}
			if !yield(item, nil) {
				return errStop
			}
			return nil
		})
	}
}

// isHidden reports whether an entry is skipped by the loader: dot files and
// directories, and directories starting with "_".
func isHidden(d fs.DirEntry) bool {
	n := d.Name()
	return strings.HasPrefix(n, ".") || (d.IsDir() && strings.HasPrefix(n, "_"))
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range markdownExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
