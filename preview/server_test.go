package preview

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ancientlore/inkwell/publish"
	"github.com/ancientlore/inkwell/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishSite(t *testing.T, out *publish.Output, home string) {
	t.Helper()
	p := &publish.Publisher{Output: out}
	require.NoError(t, p.Publish(context.Background(), &render.Manifest{
		Pages: []render.Page{
			{Path: "index.html", Data: []byte(home)},
			{Path: "a/index.html", Data: []byte("<p>" + strings.Repeat("post a ", 200) + "</p>")},
			{Path: "404.html", Data: []byte("<h1>Page Not Found</h1>")},
		},
	}))
}

func newTestServer(t *testing.T) (*Server, *publish.Output) {
	t.Helper()
	out := publish.NewOutput(filepath.Join(t.TempDir(), "public"))
	publishSite(t, out, "first")
	return &Server{
		Output:  out,
		Metrics: NewMetrics(),
		Headers: map[string]string{"X-Frame-Options": "DENY"},
	}, out
}

func TestServerSite(t *testing.T) {
	s, out := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	body := func(path string) (int, string) {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, "DENY", res.Header.Get("X-Frame-Options"), path)
		if res.StatusCode == http.StatusOK {
			assert.Equal(t, "no-cache, no-store, must-revalidate", res.Header.Get("Cache-Control"), path)
		}
		return res.StatusCode, string(b)
	}

	code, b := body("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "first", b)

	code, b = body("/missing/")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "<h1>Page Not Found</h1>", b)

	publishSite(t, out, "second")
	_, b = body("/")
	assert.Equal(t, "second", b)
}

func TestServerGzip(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/a/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(b), "post a post a")
}

func TestServerStatus(t *testing.T) {
	s, _ := newTestServer(t)
	s.Loop = &Loop{}
	s.Loop.status = Status{State: IdleWithError, Builds: 2, Generation: 1, Error: "a.md: template single: boom"}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StatusPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "idle-with-error", got["state"])
	assert.Equal(t, "a.md: template single: boom", got["error"])
	assert.EqualValues(t, 2, got["builds"])
}

func TestServerMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	s.Metrics.observeBuild(time.Second, 7, 1, nil)
	s.Metrics.observeBuild(time.Second, 0, 0, assert.AnError)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	b := rec.Body.String()
	assert.Contains(t, b, `inkwell_builds_total{result="success"} 1`)
	assert.Contains(t, b, `inkwell_builds_total{result="failed"} 1`)
	assert.Contains(t, b, "inkwell_last_build_pages 7")
	assert.Contains(t, b, "inkwell_build_duration_seconds_count 2")
}

func TestServeShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServeBadAddr(t *testing.T) {
	s, _ := newTestServer(t)
	s.Addr = "256.0.0.1:99999"
	assert.Error(t, s.ListenAndServe(context.Background()))
}
