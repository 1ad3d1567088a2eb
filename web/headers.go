package web

import (
	"net/http"
	"strings"
)

// HeaderHandler returns an http.Handler that sets the given headers before
// calling h. Names are canonicalized and the map is copied, so later changes
// to headers have no effect. An empty value removes the header, which drops
// one set by an outer handler such as NoCacheHandler.
func HeaderHandler(h http.Handler, headers map[string]string) http.Handler {
	set := make(map[string]string, len(headers))
	var drop []string
	for k, v := range headers {
		k = http.CanonicalHeaderKey(strings.TrimSpace(k))
		switch {
		case k == "":
		case v == "":
			drop = append(drop, k)
		default:
			set[k] = v
		}
	}
	if len(set) == 0 && len(drop) == 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for k, v := range set {
			hdr.Set(k, v)
		}
		for _, k := range drop {
			hdr.Del(k)
		}
		h.ServeHTTP(w, r)
	})
}

// NoCacheHandler tells clients not to cache responses, so a browser reload
// always shows the latest build.
func NoCacheHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		h.ServeHTTP(w, r)
	})
}
