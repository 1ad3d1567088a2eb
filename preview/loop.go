// Package preview rebuilds a site when its sources change and serves the
// result over HTTP.
package preview

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ancientlore/inkwell/site"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when Loop.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// State is the state of the preview loop.
type State int

const (
	Idle State = iota
	Rebuilding
	IdleWithError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rebuilding:
		return "rebuilding"
	case IdleWithError:
		return "idle-with-error"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Builder runs one full build. *site.Builder implements it.
type Builder interface {
	Build(ctx context.Context) (*site.Result, error)
}

// Status is a snapshot of the loop.
type Status struct {
	State      State     `json:"state"`
	Builds     int       `json:"builds"`
	Generation uint64    `json:"generation"`
	Pages      int       `json:"pages"`
	Skipped    []string  `json:"skipped,omitempty"`
	LastBuild  time.Time `json:"lastBuild"`
	Duration   string    `json:"duration,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Loop watches the sources and runs a build after each burst of changes.
// Everything happens on the goroutine calling Run: events that arrive while
// a build runs wait in the source and start one more quiet period when it
// is done, so builds never overlap and at most one is pending.
type Loop struct {
	Builder  Builder
	Source   EventSource
	Debounce time.Duration
	Metrics  *Metrics
	Logger   *zap.Logger

	mu     sync.Mutex
	status Status
}

// Run builds once and then rebuilds on changes until ctx is done or the
// source closes. A failed build leaves the previous output in place.
func (l *Loop) Run(ctx context.Context) {
	logger := l.logger()
	delay := l.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	d := newDebouncer(delay)
	defer d.Stop()

	l.rebuild(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.Source.Events():
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("Change detected", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := l.Source.AddTree(ev.Name); err != nil {
						logger.Warn("Cannot watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
			d.Trigger()
		case err, ok := <-l.Source.Errors():
			if !ok {
				return
			}
			logger.Warn("Watcher error", zap.Error(err))
		case <-d.C():
			n := d.Fired()
			l.Metrics.addEvents(n)
			logger.Debug("Rebuilding", zap.Int("events", n))
			l.rebuild(ctx)
		}
	}
}

// rebuild runs one build and records its outcome.
func (l *Loop) rebuild(ctx context.Context) {
	l.mu.Lock()
	l.status.State = Rebuilding
	l.mu.Unlock()

	start := time.Now()
	res, err := l.Builder.Build(ctx)
	elapsed := time.Since(start)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Builds++
	l.status.LastBuild = start
	l.status.Duration = elapsed.String()
	if err != nil {
		l.status.State = IdleWithError
		l.status.Error = err.Error()
		l.Metrics.observeBuild(elapsed, 0, 0, err)
		l.logger().Error("Build failed; still serving the previous output", zap.Error(err))
		return
	}
	l.status.State = Idle
	l.status.Error = ""
	l.status.Generation = res.Generation
	l.status.Pages = res.Pages
	l.status.Skipped = l.status.Skipped[:0]
	for _, pe := range res.Skipped {
		l.status.Skipped = append(l.status.Skipped, pe.Error())
	}
	l.Metrics.observeBuild(elapsed, res.Pages, len(res.Skipped), nil)
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.status
	s.Skipped = slices.Clone(s.Skipped)
	return s
}

func (l *Loop) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}
