package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records hook events as Prometheus metrics. It implements
// [EngineHooks], [CacheHooks] and [ServerHooks].
type Prometheus struct {
	registry *prometheus.Registry

	ModulesResolved  prometheus.Counter
	ModuleDuration   prometheus.Histogram
	RewritesTotal    prometheus.Counter
	GraphsTotal      *prometheus.CounterVec
	GraphDuration    prometheus.Histogram
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheSetBytes    *prometheus.CounterVec
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// NewPrometheus creates the flowc metrics and registers them with registry.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	p := &Prometheus{
		registry: registry,
		ModulesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowc_modules_resolved_total",
			Help: "Total number of modules whose own interval was computed",
		}),
		ModuleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowc_module_resolve_duration_seconds",
			Help:    "Time spent resolving one module's own interval",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		RewritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowc_probe_conditionals_rewritten_total",
			Help: "Total number of probe conditionals neutralized",
		}),
		GraphsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowc_graphs_total",
			Help: "Total number of dependency graph computations",
		}, []string{"status"}),
		GraphDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowc_graph_duration_seconds",
			Help:    "Dependency graph computation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowc_cache_hits_total",
			Help: "Total number of cache hits",
		}, []string{"key_type"}),
		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowc_cache_misses_total",
			Help: "Total number of cache misses",
		}, []string{"key_type"}),
		CacheSetBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowc_cache_set_bytes_total",
			Help: "Total bytes written to the cache",
		}, []string{"key_type"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowc_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowc_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowc_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
	}

	registry.MustRegister(
		p.ModulesResolved,
		p.ModuleDuration,
		p.RewritesTotal,
		p.GraphsTotal,
		p.GraphDuration,
		p.CacheHitsTotal,
		p.CacheMissesTotal,
		p.CacheSetBytes,
		p.RequestsTotal,
		p.RequestDuration,
		p.RequestsInFlight,
	)
	return p
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) OnModuleResolved(_ context.Context, _ string, d time.Duration, rewrites int) {
	p.ModulesResolved.Inc()
	p.ModuleDuration.Observe(d.Seconds())
	p.RewritesTotal.Add(float64(rewrites))
}

func (p *Prometheus) OnGraphResolved(_ context.Context, _, _ int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.GraphsTotal.WithLabelValues(status).Inc()
	p.GraphDuration.Observe(d.Seconds())
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheSetBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string) {
	p.RequestsInFlight.Inc()
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.RequestsInFlight.Dec()
	p.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
