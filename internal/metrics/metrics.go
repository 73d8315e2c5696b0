package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	analysesTotal         *prometheus.CounterVec
	analysisDuration      prometheus.Histogram
	decompositionFailures *prometheus.CounterVec
	cacheLookups          *prometheus.CounterVec
	datasetLoads          *prometheus.CounterVec
	chartRenders          *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdash_analyses_total",
			Help: "Total number of ticker analyses",
		},
		[]string{"ticker", "status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsdash_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
	r.decompositionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdash_decomposition_failures_total",
			Help: "Total number of seasonal decompositions that could not be computed",
		},
		[]string{"reason"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdash_cache_lookups_total",
			Help: "Monthly series cache lookups",
		},
		[]string{"result"},
	)
	r.datasetLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdash_dataset_loads_total",
			Help: "Total number of dataset loads",
		},
		[]string{"status"},
	)
	r.chartRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdash_chart_renders_total",
			Help: "Total number of rendered charts",
		},
		[]string{"kind"},
	)

	reg.MustRegister(r.analysesTotal)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.decompositionFailures)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.datasetLoads)
	reg.MustRegister(r.chartRenders)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordAnalysis records a completed analysis.
func (r *Registry) RecordAnalysis(ticker, status string, duration float64) {
	r.analysesTotal.WithLabelValues(ticker, status).Inc()
	r.analysisDuration.Observe(duration)
}

// RecordDecompositionFailure records a decomposition that was skipped.
func (r *Registry) RecordDecompositionFailure(reason string) {
	r.decompositionFailures.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Registry) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordDatasetLoad records a dataset (re)load.
func (r *Registry) RecordDatasetLoad(status string) {
	r.datasetLoads.WithLabelValues(status).Inc()
}

// RecordChartRender records a rendered chart of the given kind.
func (r *Registry) RecordChartRender(kind string) {
	r.chartRenders.WithLabelValues(kind).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
