package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/sdui/internal/cache"
	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/internal/microapp"
	"github.com/pitabwire/sdui/internal/observability"
	"github.com/pitabwire/sdui/model"
)

type testServer struct {
	router  http.Handler
	store   *cache.MemoryStorage
	metrics *observability.Metrics
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.Identity = testIdentity()
	cfg.Server.HandlerTimeout = 5 * time.Second
	cfg.Server.MaxImportBytes = 64 << 10

	store := cache.NewMemoryStorage()
	metrics := observability.InitMetrics(prometheus.NewRegistry())
	svc := microapp.NewService(cache.NewInstrumented(store, metrics), microapp.WithRecorder(metrics))

	return &testServer{
		router: NewRouter(Dependencies{
			Config:    cfg,
			Service:   svc,
			Metrics:   metrics,
			Readiness: observability.ReadinessChecks{Storage: store},
		}),
		store:   store,
		metrics: metrics,
		token:   signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()),
	}
}

func (s *testServer) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// demoFiles loads the demo package fixture as an import file map.
func demoFiles(t *testing.T) map[string]string {
	t.Helper()
	root := filepath.Join("..", "microapp", "testdata", "demo")
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading demo package: %v", err)
	}
	return files
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestRouter_healthAndReady(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		if w := s.do(http.MethodGet, path, nil, false); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func TestRouter_importListRender(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/microapps", ImportRequest{Files: demoFiles(t)}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body.String())
	}
	var imported ImportResponse
	json.NewDecoder(w.Body).Decode(&imported)
	if imported.Code != "demo" || len(imported.Screens) != 2 {
		t.Errorf("import response = %+v", imported)
	}
	if loc := w.Header().Get("Location"); loc != "/microapps/demo" {
		t.Errorf("Location = %q", loc)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request ID")
	}

	w = s.do(http.MethodGet, "/microapps", nil, false)
	var list map[string][]string
	json.NewDecoder(w.Body).Decode(&list)
	if len(list["microapps"]) != 1 || list["microapps"][0] != "demo" {
		t.Errorf("list = %v", list)
	}

	w = s.do(http.MethodGet, "/microapps/demo", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var stored model.CachedMicroappData
	json.NewDecoder(w.Body).Decode(&stored)
	if stored.MicroappCode != "demo" || stored.Microapp == nil || stored.Microapp.Title != "Demo" {
		t.Errorf("stored = %+v", stored)
	}

	dc := map[string]any{
		"json_sources": map[string]any{
			"greeting": "Hello",
			"items":    map[string]any{"count": 3},
		},
	}
	w = s.do(http.MethodPost, "/microapps/demo/screens/main/render", dc, false)
	if w.Code != http.StatusOK {
		t.Fatalf("render status = %d, body %s", w.Code, w.Body.String())
	}
	var rendered RenderResponse
	if err := json.NewDecoder(w.Body).Decode(&rendered); err != nil {
		t.Fatalf("decode render: %v", err)
	}
	if rendered.Root == nil || len(rendered.Root.Children) != 2 {
		t.Fatalf("render root = %+v", rendered.Root)
	}
	if got := rendered.Root.Children[0].Text; got != "Hello" {
		t.Errorf("label text = %q, want Hello", got)
	}
	if got := rendered.Root.Children[0].TextStyleCode; got != "h1" {
		t.Errorf("label text style = %q, want h1", got)
	}
	loop := rendered.Root.Children[1]
	if loop.ResolvedMaxForIndex == nil || *loop.ResolvedMaxForIndex != 3 {
		t.Errorf("loop bound = %v, want 3", loop.ResolvedMaxForIndex)
	}
	if rendered.Styles == nil || rendered.Bindings.Total != rendered.Bindings.Resolved {
		t.Errorf("render styles = %v bindings = %+v", rendered.Styles, rendered.Bindings)
	}

	if v := testutil.ToFloat64(s.metrics.ImportsTotal.WithLabelValues(microapp.ImportOK)); v != 1 {
		t.Errorf("imports ok = %v, want 1", v)
	}
	if v := testutil.ToFloat64(s.metrics.HTTPRequestsTotal.WithLabelValues("POST", "/microapps/{code}/screens/{screenCode}/render", "200")); v != 1 {
		t.Errorf("render requests = %v, want 1", v)
	}
	if v := testutil.ToFloat64(s.metrics.StorageOperationsTotal.WithLabelValues(cache.OpSave, cache.StatusOK)); v != 1 {
		t.Errorf("storage saves = %v, want 1", v)
	}
}

func TestRouter_renderEmptyBody(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/microapps", ImportRequest{Files: demoFiles(t)}, true)

	w := s.do(http.MethodPost, "/microapps/demo/screens/detail/render", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var rendered RenderResponse
	json.NewDecoder(w.Body).Decode(&rendered)
	if got := rendered.Root.Children[0].Text; got != "Guest" {
		t.Errorf("appbar title = %q, want Guest", got)
	}
}

func TestRouter_errors(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/microapps", ImportRequest{Files: demoFiles(t)}, true)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		authed     bool
		wantStatus int
		wantCode   string
	}{
		{"unknown microapp", http.MethodGet, "/microapps/ghost", nil, false, http.StatusNotFound, model.ErrNotFound},
		{"unknown screen", http.MethodPost, "/microapps/demo/screens/nope/render", nil, false, http.StatusNotFound, model.ErrNotFound},
		{"bad data context", http.MethodPost, "/microapps/demo/screens/main/render", []int{1}, false, http.StatusBadRequest, model.ErrBadRequest},
		{"import without token", http.MethodPost, "/microapps", ImportRequest{Files: demoFiles(t)}, false, http.StatusUnauthorized, model.ErrUnauthorized},
		{"import without files", http.MethodPost, "/microapps", ImportRequest{}, true, http.StatusBadRequest, model.ErrBadRequest},
		{"import empty package", http.MethodPost, "/microapps", ImportRequest{Files: map[string]string{"readme.md": "x"}}, true, http.StatusUnprocessableEntity, model.ErrMissingRequiredData},
		{"delete without token", http.MethodDelete, "/microapps/demo", nil, false, http.StatusUnauthorized, model.ErrUnauthorized},
		{"delete unknown", http.MethodDelete, "/microapps/ghost", nil, true, http.StatusNotFound, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body, tt.authed)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestRouter_importTooLarge(t *testing.T) {
	s := newTestServer(t)
	files := map[string]string{"microapp.xml": strings.Repeat("x", 128<<10)}

	w := s.do(http.MethodPost, "/microapps", ImportRequest{Files: files}, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRouter_importTemplateAndDelete(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/microapps", ImportRequest{Files: demoFiles(t), Template: true, Code: "tpl"}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("template import status = %d, body %s", w.Code, w.Body.String())
	}
	if ok, _ := s.store.Contains(context.Background(), "tpl"); !ok {
		t.Fatal("template should be stored under tpl")
	}

	if w := s.do(http.MethodDelete, "/microapps/tpl", nil, true); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if ok, _ := s.store.Contains(context.Background(), "tpl"); ok {
		t.Error("template should be deleted")
	}
}

func TestRouter_readyReportsStorage(t *testing.T) {
	router := NewRouter(Dependencies{Config: config.Defaults()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without storage", w.Code)
	}
}
