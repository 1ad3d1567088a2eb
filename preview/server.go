package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ancientlore/inkwell/cache"
	"github.com/ancientlore/inkwell/publish"
	"github.com/ancientlore/inkwell/web"
	"go.uber.org/zap"
)

// Paths served next to the site.
const (
	StatusPath  = "/_inkwell/status"
	MetricsPath = "/_inkwell/metrics"
)

// Server serves the published output while the loop rebuilds it.
type Server struct {
	Addr      string
	Output    *publish.Output
	Loop      *Loop // reported at StatusPath; may be nil
	Metrics   *Metrics
	Headers   map[string]string // added to every site response
	CacheSize int64

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration

	Logger *zap.Logger
}

// Handler returns the handler for the site and the inkwell endpoints.
func (s *Server) Handler() http.Handler {
	cached := cache.New(s.Output, s.CacheSize)
	// Configured headers are applied inside NoCacheHandler so they win.
	site := web.NoCacheHandler(
		web.HeaderHandler(
			gziphandler.GzipHandler(
				web.NotFoundHandler(
					http.FileServerFS(cached),
					cached,
				),
			),
			s.Headers,
		),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+StatusPath, s.status)
	mux.Handle("GET "+MetricsPath, s.Metrics.Handler())
	mux.Handle("/", site)
	return mux
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var st Status
	if s.Loop != nil {
		st = s.Loop.Status()
	} else {
		st.Generation = s.Output.Generation()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		s.logger().Debug("Cannot write status", zap.Error(err))
	}
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
// It returns an error only if the server cannot start or fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.logger()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       orDefault(s.ReadTimeout, 10*time.Second),
		ReadHeaderTimeout: orDefault(s.ReadHeaderTimeout, 5*time.Second),
		WriteTimeout:      orDefault(s.WriteTimeout, 30*time.Second),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), orDefault(s.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("HTTP server shutdown", zap.Error(err))
		}
	}()

	logger.Info("Serving preview", zap.String("url", "http://"+ln.Addr().String()+"/"))
	err := srv.Serve(ln)
	cancel()
	<-done
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
