package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// file is a cached file or directory listing. Its exported fields are
// gob-encoded into the cache.
type file struct {
	Data []byte
	FI   fileInfo
	Dirs []dirEntry
	pos  int
}

// Stat returns information about the file.
func (f *file) Stat() (fs.FileInfo, error) {
	return f.FI, nil
}

// Read reads up to len(b) bytes from the file.
func (f *file) Read(b []byte) (int, error) {
	if f.FI.IsDir() {
		return 0, &fs.PathError{Op: "read", Path: f.FI.Name(), Err: errors.New("is a directory")}
	}
	if f.pos >= len(f.Data) {
		return 0, io.EOF
	}
	n := copy(b, f.Data[f.pos:])
	f.pos += n
	return n, nil
}

// Seek implements io.Seeker. Seeking past the end stops at the end.
func (f *file) Seek(offset int64, whence int) (int64, error) {
	if f.FI.IsDir() {
		return 0, &fs.PathError{Op: "seek", Path: f.FI.Name(), Err: errors.New("is a directory")}
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(f.pos) + offset
	case io.SeekEnd:
		pos = int64(len(f.Data)) + offset
	default:
		return int64(f.pos), fmt.Errorf("seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return int64(f.pos), fmt.Errorf("seek: negative position %d", pos)
	}
	pos = min(pos, int64(len(f.Data)))
	f.pos = int(pos)
	return pos, nil
}

// Close does nothing; cached files live in memory.
func (f *file) Close() error {
	return nil
}

// ReadDir reads the directory entries. With n <= 0 it returns all remaining
// entries; otherwise at most n, and io.EOF at the end.
func (f *file) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.FI.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: f.FI.Name(), Err: fs.ErrInvalid}
	}
	rest := f.Dirs[f.pos:]
	if n > 0 {
		if len(rest) == 0 {
			return nil, io.EOF
		}
		rest = rest[:min(n, len(rest))]
	}
	out := make([]fs.DirEntry, len(rest))
	for i := range rest {
		out[i] = rest[i]
	}
	f.pos += len(rest)
	return out, nil
}

// fileInfo holds the metadata about the cached file.
type fileInfo struct {
	Nm string
	Sz int64
	Md fs.FileMode
	Mt time.Time
}

func (fi fileInfo) Name() string       { return fi.Nm }
func (fi fileInfo) Size() int64        { return fi.Sz }
func (fi fileInfo) Mode() fs.FileMode  { return fi.Md }
func (fi fileInfo) ModTime() time.Time { return fi.Mt }
func (fi fileInfo) IsDir() bool        { return fi.Md.IsDir() }
func (fi fileInfo) Sys() any           { return nil }

// dirEntry is a directory entry as listed; only the name and type bits are
// known.
type dirEntry struct {
	FI fileInfo
}

func (di dirEntry) Name() string               { return di.FI.Name() }
func (di dirEntry) IsDir() bool                { return di.FI.IsDir() }
func (di dirEntry) Type() fs.FileMode          { return di.FI.Mode().Type() }
func (di dirEntry) Info() (fs.FileInfo, error) { return di.FI, nil }
