package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

var site = fstest.MapFS{
	"index.html":       {Data: []byte("<h1>home</h1>")},
	"essay/index.html": {Data: []byte("<h1>essay</h1>")},
	"essay/photo.png":  {Data: []byte("png")},
	"css/style.css":    {Data: []byte("body{}")},
	"404.html":         {Data: []byte("<h1>lost</h1>")},
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNotFoundHandler(t *testing.T) {
	h := NotFoundHandler(http.FileServerFS(site), site)

	rec := get(h, "/essay/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>essay</h1>", rec.Body.String())

	rec = get(h, "/essay/photo.png")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, target := range []string{"/nowhere/", "/css/", "/essay/../../etc/passwd"} {
		rec = get(h, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "<h1>lost</h1>", rec.Body.String(), target)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"), target)
	}
}

func TestNotFoundHandlerWithoutPage(t *testing.T) {
	bare := fstest.MapFS{"index.html": {Data: []byte("home")}}
	rec := get(NotFoundHandler(http.FileServerFS(bare), bare), "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 page not found")
}

func TestHeaderHandlers(t *testing.T) {
	headers := map[string]string{
		"x-frame-options": "DENY",
		"Cache-Control":   "max-age=60",
		"Expires":         "",
	}
	h := NoCacheHandler(HeaderHandler(http.FileServerFS(site), headers))
	headers["X-Frame-Options"] = "SAMEORIGIN"

	rec := get(h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.NotContains(t, rec.Header(), "Expires")

	rec = get(NoCacheHandler(HeaderHandler(http.FileServerFS(site), nil)), "/")
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
}
