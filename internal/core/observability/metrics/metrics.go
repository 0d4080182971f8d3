// Package metrics exposes the counters of the analysis service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "drgpu"

// Collector receives the events worth counting. Implementations must be safe for
// concurrent use.
type Collector interface {
	AnalysisFinished(bottleneck string, took time.Duration, suggestions, diagnostics int)
	AnalysisFailed(reason string)
	Request(route string, code int, took time.Duration)
	ConnectionOpened()
	ConnectionClosed()
}

var (
	_ Collector = (*Prometheus)(nil)
	_ Collector = Nop{}
)

// Prometheus is a Collector backed by client_golang.
type Prometheus struct {
	analyses        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	analysisSeconds prometheus.Histogram
	suggestions     prometheus.Counter
	diagnostics     prometheus.Counter
	requests        *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
	connections     prometheus.Gauge
}

// NewPrometheus registers the service metrics with reg. A nil reg uses the default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Finished kernel analyses by bottleneck memory unit",
		}, []string{"bottleneck"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Analyses that produced no tree",
		}, []string{"reason"}),
		analysisSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent building one tree",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		suggestions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion nodes attached",
		}),
		diagnostics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Missing counters and nodes met while building trees",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket connections",
		}),
	}
}

func (p *Prometheus) AnalysisFinished(bottleneck string, took time.Duration, suggestions, diagnostics int) {
	p.analyses.WithLabelValues(bottleneck).Inc()
	p.analysisSeconds.Observe(took.Seconds())
	p.suggestions.Add(float64(suggestions))
	p.diagnostics.Add(float64(diagnostics))
}

func (p *Prometheus) AnalysisFailed(reason string) {
	p.failures.WithLabelValues(reason).Inc()
}

func (p *Prometheus) Request(route string, code int, took time.Duration) {
	p.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	p.requestSeconds.WithLabelValues(route).Observe(took.Seconds())
}

func (p *Prometheus) ConnectionOpened() { p.connections.Inc() }

func (p *Prometheus) ConnectionClosed() { p.connections.Dec() }

// Nop discards everything.
type Nop struct{}

func (Nop) AnalysisFinished(string, time.Duration, int, int) {}
func (Nop) AnalysisFailed(string) {}
func (Nop) Request(string, int, time.Duration) {}
func (Nop) ConnectionOpened() {}
func (Nop) ConnectionClosed() {}
