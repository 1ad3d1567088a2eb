package preview

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build results used as metric labels.
const (
	resultSuccess = "success"
	resultFailed  = "failed"
)

// Metrics records preview builds as Prometheus metrics. A nil *Metrics
// records nothing.
type Metrics struct {
	registry      *prom.Registry
	builds        *prom.CounterVec
	buildDuration prom.Histogram
	pages         prom.Gauge
	skipped       prom.Gauge
	coalesced     prom.Counter
}

// NewMetrics creates the metrics and registers them, with the Go and process
// collectors, on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "inkwell",
			Name:      "builds_total",
			Help:      "Preview builds by result",
		}, []string{"result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "inkwell",
			Name:      "build_duration_seconds",
			Help:      "Duration of preview builds",
			Buckets:   prom.DefBuckets,
		}),
		pages: prom.NewGauge(prom.GaugeOpts{
			Namespace: "inkwell",
			Name:      "last_build_pages",
			Help:      "Pages rendered by the most recent successful build",
		}),
		skipped: prom.NewGauge(prom.GaugeOpts{
			Namespace: "inkwell",
			Name:      "last_build_skipped_files",
			Help:      "Content files skipped by the most recent successful build",
		}),
		coalesced: prom.NewCounter(prom.CounterOpts{
			Namespace: "inkwell",
			Name:      "watch_events_total",
			Help:      "File change events that led to a rebuild",
		}),
	}
	m.registry.MustRegister(m.builds, m.buildDuration, m.pages, m.skipped, m.coalesced)
	m.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) observeBuild(d time.Duration, pages, skipped int, err error) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
	if err != nil {
		m.builds.WithLabelValues(resultFailed).Inc()
		return
	}
	m.builds.WithLabelValues(resultSuccess).Inc()
	m.pages.Set(float64(pages))
	m.skipped.Set(float64(skipped))
}

func (m *Metrics) addEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.coalesced.Add(float64(n))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
