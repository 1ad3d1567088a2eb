// Package web holds the HTTP middleware used to serve a published site.
package web

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// NotFoundPage is the page served for requests that match nothing.
const NotFoundPage = "404.html"

// NotFoundHandler answers requests for paths that fsys has no page for with
// status 404 and the site's NotFoundPage, or a plain message if the site has
// none. A directory counts as a page only if it holds an index.html, so
// directories are never listed. Other requests are passed to h.
func NotFoundHandler(h http.Handler, fsys fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasPage(fsys, r.URL.Path) {
			h.ServeHTTP(w, r)
			return
		}
		b, err := fs.ReadFile(fsys, NotFoundPage)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			_, _ = w.Write(b)
		}
	})
}

// hasPage reports whether the URL path names a file, or a directory with an
// index page, in fsys.
func hasPage(fsys fs.FS, urlPath string) bool {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	fi, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	if !fi.IsDir() {
		return true
	}
	_, err = fs.Stat(fsys, path.Join(name, "index.html"))
	return err == nil
}
