package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/sdui/internal/parser"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	return m, reg
}

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)

	// Vec metrics only show up once a label set exists.
	m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond, 0, 0)
	m.OnBlockParsed(parser.BlockEvent{Block: parser.BlockStyles, Status: parser.StatusOK})
	m.OnNodeMapped("label", "mapped")
	m.RecordBindings(2, 1)
	m.RecordImport("ok")
	m.RecordRender(time.Millisecond)
	m.RecordQueryIssues("demo", 1)
	m.OnStorageOp("save", "ok", time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"sdui_http_requests_total",
		"sdui_http_request_duration_seconds",
		"sdui_http_request_size_bytes",
		"sdui_http_response_size_bytes",
		"sdui_parse_blocks_total",
		"sdui_parse_duration_seconds",
		"sdui_mapper_nodes_total",
		"sdui_bindings_total",
		"sdui_imports_total",
		"sdui_render_duration_seconds",
		"sdui_query_validation_issues_total",
		"sdui_openapi_operations_indexed",
		"sdui_storage_operations_total",
		"sdui_storage_operation_duration_seconds",
		"sdui_microapps_stored",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestOnBlockParsed(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.OnBlockParsed(parser.BlockEvent{Block: parser.BlockScreen, Status: parser.StatusOK, Duration: time.Millisecond})
	m.OnBlockParsed(parser.BlockEvent{Block: parser.BlockScreen, Status: parser.StatusDropped})
	m.OnBlockParsed(parser.BlockEvent{Block: parser.BlockEvents, Status: parser.StatusAbsent})

	if v := testutil.ToFloat64(m.ParseBlocksTotal.WithLabelValues("screen", "ok")); v != 1 {
		t.Errorf("screen ok = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.ParseBlocksTotal.WithLabelValues("events", "absent")); v != 1 {
		t.Errorf("events absent = %v, want 1", v)
	}
	// Absent blocks are counted but not timed.
	if n := testutil.CollectAndCount(m.ParseDuration); n != 1 {
		t.Errorf("parse duration series = %d, want 1", n)
	}
}

func TestRecordBindings(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RecordBindings(5, 3)
	m.RecordBindings(0, 0)

	if v := testutil.ToFloat64(m.BindingsTotal.WithLabelValues("resolved")); v != 3 {
		t.Errorf("resolved = %v, want 3", v)
	}
	if v := testutil.ToFloat64(m.BindingsTotal.WithLabelValues("unresolved")); v != 2 {
		t.Errorf("unresolved = %v, want 2", v)
	}
}

func TestStorageAndMapperObservers(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.OnStorageOp("load", "not_found", time.Millisecond)
	m.OnNodeMapped("unknown", "fallback")
	m.SetMicroappsStored(4)
	m.SetOperationsIndexed(7)

	if v := testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("load", "not_found")); v != 1 {
		t.Errorf("load not_found = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.MapperNodesTotal.WithLabelValues("unknown", "fallback")); v != 1 {
		t.Errorf("fallback nodes = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.MicroappsStored); v != 4 {
		t.Errorf("microapps stored = %v, want 4", v)
	}
	if v := testutil.ToFloat64(m.OperationsIndexed); v != 7 {
		t.Errorf("operations indexed = %v, want 7", v)
	}
}

func TestMetricsMiddleware_recordsRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/microapps/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/microapps/demo", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/microapps/{code}", "200"))
	if val != 1 {
		t.Errorf("requests total = %v, want 1", val)
	}
	if testutil.CollectAndCount(m.HTTPResponseSizeBytes) == 0 {
		t.Error("expected response size histogram to have observations")
	}
}

func TestMetricsMiddleware_capturesStatusCode(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Delete("/microapps/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/microapps/demo", nil))

	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("DELETE", "/microapps/{code}", "401"))
	if val != 1 {
		t.Errorf("401 requests = %v, want 1", val)
	}
}

func TestMetricsMiddleware_fallsBackToPath(t *testing.T) {
	m, _ := newTestMetrics(t)

	handler := m.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw/path", nil))

	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/raw/path", "200"))
	if val != 1 {
		t.Errorf("raw path requests = %v, want 1", val)
	}
}

func TestHandler_servesMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("metrics response should contain go runtime metrics")
	}
}

func TestHistogramBuckets(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"http":    httpDurationBuckets,
		"process": processDurationBuckets,
		"size":    bodySizeBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			if buckets[i] <= buckets[i-1] {
				t.Errorf("%s buckets not sorted at index %d", name, i)
			}
		}
	}
}
