package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrazmi/growlog/app/growlog/api"
	"github.com/jrazmi/growlog/bridge/scaffolding/mid"
	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/infrastructure/metrics"
	"github.com/jrazmi/growlog/infrastructure/web"
	"github.com/jrazmi/growlog/sdk/logger"
)

func newHandler(t *testing.T, models ...string) http.Handler {
	t.Helper()
	log := logger.NewDiscard()
	collector := metrics.New(nil)
	c, err := client.New(client.Config{DatasourceURL: "memory://"},
		client.WithLogger(log),
		client.WithObserver(collector.Observe),
		client.WithQueryHook(collector.ObserveQuery),
	)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	h, err := api.Handler(api.Config{
		Build:   "test",
		Log:     log,
		Client:  c,
		Metrics: collector,
		Web:     web.NewServerDefault().Config,
		CORS:    mid.DefaultCORSConfig(),
		Models:  models,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newHandler(t)
	w := serve(h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got api.Health
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "ok" || got.Backend != client.BackendMemory || got.Build != "test" {
		t.Errorf("health = %+v", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestRoutesAndMetrics(t *testing.T) {
	h := newHandler(t, "Tag")

	w := serve(h, http.MethodPost, "/v1/tags", `{"name":"indoor"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body)
	}
	if w := serve(h, http.MethodGet, "/v1/plants", ""); w.Code != http.StatusNotFound {
		t.Errorf("plants served although filtered out: %d", w.Code)
	}

	w = serve(h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{"http_requests_total", "delegate_operations_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	h := newHandler(t)
	big := `{"name":"` + strings.Repeat("x", 2<<20) + `"}`
	w := serve(h, http.MethodPost, "/v1/tags", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", w.Code)
	}
}
