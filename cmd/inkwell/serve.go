package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ancientlore/inkwell/failure"
	"github.com/ancientlore/inkwell/preview"
	"github.com/ancientlore/inkwell/site"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(g *globals) *cobra.Command {
	var (
		drafts            bool
		strict            bool
		host              string
		port              int
		readTimeout       time.Duration
		readHeaderTimeout time.Duration
		writeTimeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and rebuild it when sources change",
		Long: `serve builds the site, serves the output directory over HTTP and watches
the content, static and theme directories. A burst of changes leads to one
rebuild once the files have been quiet for the debounce period. If a
rebuild fails the previous output keeps being served.

Build status is reported at /_inkwell/status and Prometheus metrics at
/_inkwell/metrics.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if host == "" {
				host = cfg.Serve.Host
			}
			if port == 0 {
				port = cfg.Serve.Port
			}
			b := site.NewBuilder(cfg, g.logger)
			b.Drafts = drafts
			b.Strict = b.Strict || strict
			return serve(cmd, g.logger, b, &preview.Server{
				Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
				Output:            b.Output,
				Headers:           cfg.Headers,
				ReadTimeout:       readTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
				WriteTimeout:      writeTimeout,
				Logger:            g.logger,
			})
		},
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.BoolVar(&drafts, "draft", false, "Include drafts.")
	fs.BoolVar(&strict, "strict", false, "Fail a rebuild on the first content file that cannot be parsed.")
	fs.StringVar(&host, "host", "", "Host to listen on; defaults to serve.host.")
	fs.IntVar(&port, "port", 0, "Port to listen on; defaults to serve.port.")
	fs.DurationVar(&readTimeout, "readtimeout", 10*time.Second, "HTTP server read timeout.")
	fs.DurationVar(&readHeaderTimeout, "readheadertimeout", 5*time.Second, "HTTP server read header timeout.")
	fs.DurationVar(&writeTimeout, "writetimeout", 30*time.Second, "HTTP server write timeout.")
	g.addFlags(cmd, fs, false)
	return cmd
}

// serve runs the preview loop and server until an interrupt or until the
// server fails.
func serve(cmd *cobra.Command, logger *zap.Logger, b *site.Builder, srv *preview.Server) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return &failure.IOError{Op: "listen", Path: srv.Addr, Err: err}
	}
	w, err := preview.NewWatcher(b.WatchDirs(), logger)
	if err != nil {
		_ = ln.Close()
		return &failure.IOError{Op: "watch", Path: b.Config.Root, Err: err}
	}
	defer w.Close()

	metrics := preview.NewMetrics()
	loop := &preview.Loop{
		Builder:  b,
		Source:   w,
		Debounce: b.Config.Serve.Debounce.Std(),
		Metrics:  metrics,
		Logger:   logger,
	}
	srv.Loop = loop
	srv.Metrics = metrics

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		loop.Run(ctx)
		return nil
	})
	grp.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	err = grp.Wait()
	if err == nil {
		logger.Info("Goodbye.")
	}
	return err
}
