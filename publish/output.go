package publish

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ancientlore/inkwell/failure"
	"github.com/google/uuid"
)

// Output is the published output directory. It implements fs.FS; readers
// never observe the directory missing or half written while a new build is
// swapped in. Processes reading Dir directly from disk can find it missing
// for the instant between the two renames of a swap.
type Output struct {
	dir string
	mu  sync.RWMutex
	gen atomic.Uint64
}

// NewOutput returns the output rooted at dir. The directory need not exist
// yet.
func NewOutput(dir string) *Output {
	return &Output{dir: filepath.Clean(dir)}
}

// Dir returns the output directory.
func (o *Output) Dir() string {
	return o.dir
}

// Generation returns the number of builds swapped in so far.
func (o *Output) Generation() uint64 {
	return o.gen.Load()
}

// Open implements fs.FS.
func (o *Output) Open(name string) (fs.File, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return os.DirFS(o.dir).Open(name)
}

// swap replaces the output directory with staging. It returns the new
// generation and the path the old output was moved to, which the caller
// removes; prev is empty when there was no old output.
func (o *Output) swap(staging string) (gen uint64, prev string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, err = os.Stat(o.dir)
	switch {
	case err == nil:
		prev = o.dir + ".prev-" + uuid.NewString()
		if err := os.Rename(o.dir, prev); err != nil {
			return o.gen.Load(), "", &failure.IOError{Op: "back up output", Path: o.dir, Err: err}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return o.gen.Load(), "", &failure.IOError{Op: "stat output", Path: o.dir, Err: err}
	}

	if err := os.Rename(staging, o.dir); err != nil {
		if prev != "" {
			// Put the old output back; if that fails too, leave it where it is.
			_ = os.Rename(prev, o.dir)
		}
		return o.gen.Load(), "", &failure.IOError{Op: "promote output", Path: staging, Err: err}
	}
	return o.gen.Add(1), prev, nil
}
