package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the API and the scheduling runs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	runDuration     prometheus.Histogram
	runFailures     *prometheus.CounterVec
	studentsPlaced  prometheus.Counter
	mutations       *prometheus.CounterVec
	exports         *prometheus.CounterVec
	eventFailures   prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_cache_hit_ratio",
			Help: "Ratio of rendered schedule cache hits to lookups",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_cache_lookups_total",
			Help: "Rendered schedule cache lookups by result",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduling_run_duration_seconds",
			Help:    "Wall time of complete scheduling runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		runFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_run_failures_total",
			Help: "Scheduling runs that ended with an error, by error code",
		}, []string{"code"}),
		studentsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduling_students_placed_total",
			Help: "Students placed by successful scheduling runs",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_mutations_total",
			Help: "Schedule edits by kind and outcome",
		}, []string{"kind", "outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_exports_total",
			Help: "Generated schedule documents by format",
		}, []string{"format"}),
		eventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_event_publish_failures_total",
			Help: "Lifecycle events that could not be published",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheHitRatio, m.cacheLookups, m.runDuration,
		m.runFailures, m.studentsPlaced, m.mutations, m.exports, m.eventFailures, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup records a hit or miss and refreshes the hit ratio.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveRun records a finished scheduling run. code is empty on success.
func (m *MetricsService) ObserveRun(duration time.Duration, placed int, code string) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	if code != "" {
		m.runFailures.WithLabelValues(code).Inc()
		return
	}
	m.studentsPlaced.Add(float64(placed))
}

// ObserveMutation counts a schedule edit.
func (m *MetricsService) ObserveMutation(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(kind, outcome).Inc()
}

// ObserveExport counts a generated document.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// ObserveEventFailure counts an event that was dropped.
func (m *MetricsService) ObserveEventFailure() {
	if m == nil {
		return
	}
	m.eventFailures.Inc()
}
