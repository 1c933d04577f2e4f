package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitabwire/sdui/internal/parser"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	processDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1}
	bodySizeBuckets        = []float64{100, 1024, 10240, 102400, 1048576, 8388608}
)

// Metrics holds all Prometheus metric instruments of the runtime.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Pipeline metrics
	ParseBlocksTotal  *prometheus.CounterVec
	ParseDuration     *prometheus.HistogramVec
	MapperNodesTotal  *prometheus.CounterVec
	BindingsTotal     *prometheus.CounterVec
	ImportsTotal      *prometheus.CounterVec
	RenderDuration    prometheus.Histogram
	QueryIssuesTotal  *prometheus.CounterVec
	OperationsIndexed prometheus.Gauge

	// Storage metrics
	StorageOperationsTotal *prometheus.CounterVec
	StorageDuration        *prometheus.HistogramVec
	MicroappsStored        prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdui_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdui_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdui_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Pipeline
		ParseBlocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_parse_blocks_total",
			Help: "Total number of parsed XML blocks by outcome.",
		}, []string{"block", "status"}),
		ParseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdui_parse_duration_seconds",
			Help:    "Time spent parsing one XML block.",
			Buckets: processDurationBuckets,
		}, []string{"block"}),
		MapperNodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_mapper_nodes_total",
			Help: "Total number of component nodes mapped by outcome.",
		}, []string{"kind", "outcome"}),
		BindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_bindings_total",
			Help: "Total number of binding macros seen by outcome.",
		}, []string{"status"}),
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_imports_total",
			Help: "Total number of microapp imports.",
		}, []string{"status"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdui_render_duration_seconds",
			Help:    "Time spent loading and binding one screen.",
			Buckets: processDurationBuckets,
		}),
		QueryIssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_query_validation_issues_total",
			Help: "Total number of microapp queries that failed OpenAPI validation.",
		}, []string{"microapp"}),
		OperationsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdui_openapi_operations_indexed",
			Help: "Number of indexed OpenAPI operations.",
		}),

		// Storage
		StorageOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdui_storage_operations_total",
			Help: "Total number of microapp storage operations.",
		}, []string{"op", "status"}),
		StorageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdui_storage_operation_duration_seconds",
			Help:    "Microapp storage operation duration in seconds.",
			Buckets: processDurationBuckets,
		}, []string{"op"}),
		MicroappsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdui_microapps_stored",
			Help: "Number of microapps in storage.",
		}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Pipeline
		m.ParseBlocksTotal,
		m.ParseDuration,
		m.MapperNodesTotal,
		m.BindingsTotal,
		m.ImportsTotal,
		m.RenderDuration,
		m.QueryIssuesTotal,
		m.OperationsIndexed,
		// Storage
		m.StorageOperationsTotal,
		m.StorageDuration,
		m.MicroappsStored,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// OnBlockParsed implements parser.BlockObserver.
func (m *Metrics) OnBlockParsed(ev parser.BlockEvent) {
	m.ParseBlocksTotal.WithLabelValues(ev.Block, ev.Status).Inc()
	if ev.Status != parser.StatusAbsent {
		m.ParseDuration.WithLabelValues(ev.Block).Observe(ev.Duration.Seconds())
	}
}

// OnNodeMapped implements mapper.Observer.
func (m *Metrics) OnNodeMapped(kind, outcome string) {
	m.MapperNodesTotal.WithLabelValues(kind, outcome).Inc()
}

// OnStorageOp implements cache.OpObserver.
func (m *Metrics) OnStorageOp(op, status string, d time.Duration) {
	m.StorageOperationsTotal.WithLabelValues(op, status).Inc()
	m.StorageDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordBindings records the outcome of one binding pass.
func (m *Metrics) RecordBindings(total, resolved int) {
	if resolved > 0 {
		m.BindingsTotal.WithLabelValues("resolved").Add(float64(resolved))
	}
	if total > resolved {
		m.BindingsTotal.WithLabelValues("unresolved").Add(float64(total - resolved))
	}
}

// RecordImport records a microapp import.
func (m *Metrics) RecordImport(status string) {
	m.ImportsTotal.WithLabelValues(status).Inc()
}

// RecordRender records the duration of one screen render.
func (m *Metrics) RecordRender(duration time.Duration) {
	m.RenderDuration.Observe(duration.Seconds())
}

// RecordQueryIssues records queries of a microapp that failed validation.
func (m *Metrics) RecordQueryIssues(microapp string, count int) {
	m.QueryIssuesTotal.WithLabelValues(microapp).Add(float64(count))
}

// SetOperationsIndexed sets the number of indexed OpenAPI operations.
func (m *Metrics) SetOperationsIndexed(count int) {
	m.OperationsIndexed.Set(float64(count))
}

// SetMicroappsStored sets the number of stored microapps.
func (m *Metrics) SetMicroappsStored(count int) {
	m.MicroappsStored.Set(float64(count))
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}
		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start), reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// responseRecorder captures the status and body size written by a handler. It
// is shared by the metrics and tracing middleware.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
