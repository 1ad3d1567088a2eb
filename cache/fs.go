// Package cache provides an in-memory, read-only view of the published output
// backed by groupcache. Entries are keyed by output generation, so a rebuild
// that swaps the output invalidates everything read before it.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strconv"

	"github.com/golang/groupcache"
	"github.com/google/uuid"
)

// DefaultSize is the cache size used when New is given zero.
const DefaultSize = 32 << 20

// A Source is a file system whose contents change only when its generation
// does.
type Source interface {
	fs.FS
	Generation() uint64
}

// An FS provides cached access to a Source.
type FS struct {
	src   Source
	cache *groupcache.Group
}

// New creates a cached FS around src holding up to sizeInBytes. Each FS gets
// its own uniquely named groupcache group.
func New(src Source, sizeInBytes int64) *FS {
	if sizeInBytes <= 0 {
		sizeInBytes = DefaultSize
	}
	return &FS{
		src:   src,
		cache: groupcache.NewGroup("inkwell-output-"+uuid.NewString(), sizeInBytes, groupcache.GetterFunc(getter(src))),
	}
}

// Open opens the named file as of the current generation of the source.
func (cfs *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	var (
		buf groupcache.ByteView
		q   = make(url.Values, 2)
		f   file
	)
	q.Set("g", strconv.FormatUint(cfs.src.Generation(), 10))
	q.Set("path", name)
	err := cfs.cache.Get(context.Background(), q.Encode(), groupcache.ByteViewSink(&buf))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if err := gob.NewDecoder(buf.Reader()).Decode(&f); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &f, nil
}

// getter loads a file or directory listing from src and gob-encodes it.
func getter(src fs.FS) func(ctx context.Context, key string, dest groupcache.Sink) error {
	return func(ctx context.Context, key string, dest groupcache.Sink) error {
		q, err := url.ParseQuery(key)
		if err != nil {
			return fmt.Errorf("invalid cache key: %w", err)
		}
		f, err := src.Open(q.Get("path"))
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		result := file{
			FI: fileInfo{
				Nm: info.Name(),
				Sz: info.Size(),
				Md: info.Mode(),
				Mt: info.ModTime(),
			},
		}
		if info.IsDir() {
			d, ok := f.(fs.ReadDirFile)
			if !ok {
				return fmt.Errorf("%s: directory cannot be listed", q.Get("path"))
			}
			entries, err := d.ReadDir(-1)
			if err != nil {
				return err
			}
			result.Dirs = make([]dirEntry, len(entries))
			for i, entry := range entries {
				result.Dirs[i].FI.Nm = entry.Name()
				result.Dirs[i].FI.Md = entry.Type()
			}
		} else {
			result.Data, err = io.ReadAll(f)
			if err != nil {
				return err
			}
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(result); err != nil {
			return err
		}
		return dest.SetBytes(buf.Bytes())
	}
}
