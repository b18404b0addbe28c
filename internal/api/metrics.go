package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aiaudit/internal/rules"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	scanDuration    *prometheus.HistogramVec
	findingsTotal   *prometheus.CounterVec
	scanErrors      *prometheus.CounterVec
	filesScanned    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiaudit_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aiaudit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		scanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aiaudit_scan_duration_seconds",
			Help:    "Duration of a single file scan per category in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}, []string{"category"}),
		findingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiaudit_findings_total",
			Help: "Findings produced before threshold filtering, by category",
		}, []string{"category"}),
		scanErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aiaudit_scan_abandoned_total",
			Help: "File scans abandoned after a match timeout, by category",
		}, []string{"category"}),
		filesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "aiaudit_files_scanned_total",
			Help: "Files handed to the engines",
		}),
	}
}

// ObserveScan records one (file, category) scan; it matches audit.ScanHook.
func (m *Metrics) ObserveScan(category rules.Category, elapsed time.Duration, findings int, err error) {
	c := string(category)
	m.scanDuration.WithLabelValues(c).Observe(elapsed.Seconds())
	if err != nil {
		m.scanErrors.WithLabelValues(c).Inc()
		return
	}
	m.findingsTotal.WithLabelValues(c).Add(float64(findings))
}

// ObserveFiles records files accepted for scanning.
func (m *Metrics) ObserveFiles(n int) {
	m.filesScanned.Add(float64(n))
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
