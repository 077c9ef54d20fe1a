package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inventoryservice/internal/inventory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

type reserveResp struct {
	Success   bool  `json:"success"`
	Remaining int64 `json:"remaining"`
}

type testApp struct {
	router  http.Handler
	redis   *miniredis.Miniredis
	metrics *inventory.Metrics
}

func setupApp(t *testing.T, defaultStock int64) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	metrics := inventory.NewMetrics(reg)
	svc := inventory.NewService(inventory.NewRedisStore(client), logger, noop.NewTracerProvider().Tracer("test"), metrics, inventory.Options{
		DefaultStock: defaultStock,
		StoreTimeout: time.Second,
	})

	router := NewRouter(svc, reg, func() string { return "connected" }, logger)
	return &testApp{router: router, redis: mr, metrics: metrics}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestReserveThenQuery(t *testing.T) {
	app := setupApp(t, 100)

	rr := app.do(t, http.MethodPost, "/reserve", `{"item":"widget","quantity":30}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[reserveResp](t, rr); !got.Success || got.Remaining != 70 {
		t.Fatalf("expected success with 70, got %+v", got)
	}

	rr = app.do(t, http.MethodGet, "/inventory/widget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decode[stockResponse](t, rr); got.Item != "widget" || got.Stock != 70 {
		t.Fatalf("expected widget at 70, got %+v", got)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	app := setupApp(t, 100)
	app.redis.Set("widget", "70")

	rr := app.do(t, http.MethodPost, "/reserve", `{"item":"widget","quantity":1000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decode[reserveResp](t, rr); got.Success || got.Remaining != 70 {
		t.Fatalf("expected rejection at 70, got %+v", got)
	}
	if v, _ := app.redis.Get("widget"); v != "70" {
		t.Fatalf("stock must be unchanged, got %q", v)
	}
}

func TestReserveNumericStringQuantity(t *testing.T) {
	app := setupApp(t, 10)

	rr := app.do(t, http.MethodPost, "/reserve", `{"item":"bolt","quantity":"4"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[reserveResp](t, rr); !got.Success || got.Remaining != 6 {
		t.Fatalf("expected success with 6, got %+v", got)
	}
}

func TestReserveBadRequests(t *testing.T) {
	app := setupApp(t, 100)

	bodies := map[string]string{
		"missing item":      `{"quantity": 5}`,
		"missing quantity":  `{"item":"widget"}`,
		"empty body":        ``,
		"not json":          `item=widget`,
		"bad quantity":      `{"item":"widget","quantity":"five"}`,
		"zero quantity":     `{"item":"widget","quantity":0}`,
		"negative quantity": `{"item":"widget","quantity":-1}`,
		"empty item":        `{"item":"","quantity":1}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rr := app.do(t, http.MethodPost, "/reserve", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if got := decode[jsonError](t, rr); got.Error == "" {
				t.Fatalf("expected error message")
			}
		})
	}
	if len(app.redis.Keys()) != 0 {
		t.Fatalf("bad requests must not touch the store, got keys %v", app.redis.Keys())
	}
}

func TestInventoryUnknownItemIsZero(t *testing.T) {
	app := setupApp(t, 100)

	rr := app.do(t, http.MethodGet, "/inventory/never-seen", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decode[stockResponse](t, rr); got.Stock != 0 {
		t.Fatalf("expected 0, got %+v", got)
	}
}

func TestInventoryAfterRejectedFirstReservationShowsDefault(t *testing.T) {
	app := setupApp(t, 100)

	app.do(t, http.MethodPost, "/reserve", `{"item":"gadget","quantity":500}`)
	rr := app.do(t, http.MethodGet, "/inventory/gadget", "")
	if got := decode[stockResponse](t, rr); got.Stock != 100 {
		t.Fatalf("expected initialized default 100, got %+v", got)
	}
}

func TestStoreErrorIs500(t *testing.T) {
	app := setupApp(t, 100)
	app.redis.Close()

	rr := app.do(t, http.MethodPost, "/reserve", `{"item":"widget","quantity":1}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	got := decode[jsonError](t, rr)
	if got.Error != "store unavailable" || got.Details != "" {
		t.Fatalf("expected generic store error, got %+v", got)
	}

	rr = app.do(t, http.MethodGet, "/inventory/widget", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestConcurrentReservations(t *testing.T) {
	app := setupApp(t, 60)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := app.do(t, http.MethodPost, "/reserve", `{"item":"hot","quantity":2}`)
			if rr.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rr.Code)
				return
			}
			var got reserveResp
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			if got.Remaining < 0 {
				t.Errorf("observed negative stock %d", got.Remaining)
			}
			if got.Success {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 30 {
		t.Fatalf("expected exactly 30 successful reservations, got %d", succeeded)
	}
	rr := app.do(t, http.MethodGet, "/inventory/hot", "")
	if got := decode[stockResponse](t, rr); got.Stock != 0 {
		t.Fatalf("expected 0 remaining, got %+v", got)
	}
}

func TestMetricsExposesProcessedCounter(t *testing.T) {
	app := setupApp(t, 100)
	app.metrics.ProcessedOrders.Inc()

	rr := app.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "orders_processed_total 1") {
		t.Fatalf("expected processed counter in exposition, got:\n%s", rr.Body.String())
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	app := setupApp(t, 100)

	rr := app.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decode[map[string]string](t, rr)
	if got["status"] != "ok" || got["broker"] != "connected" {
		t.Fatalf("unexpected health body %v", got)
	}
	if rr.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "fixed-id")
	rr = httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	if rr.Header().Get(headerRequestID) != "fixed-id" {
		t.Fatalf("expected request id to be echoed, got %q", rr.Header().Get(headerRequestID))
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	app := setupApp(t, 100)
	rr := app.do(t, http.MethodGet, fmt.Sprintf("/nope/%d", 1), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHealthzReflectsBrokerState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	svc := inventory.NewService(inventory.NewRedisStore(client), logger, noop.NewTracerProvider().Tracer("test"),
		inventory.NewMetrics(reg), inventory.Options{DefaultStock: 100, StoreTimeout: time.Second})

	cases := []struct {
		state      string
		wantCode   int
		wantStatus string
	}{
		{"disconnected", http.StatusOK, "ok"},
		{"connecting", http.StatusOK, "ok"},
		{"connected", http.StatusOK, "ok"},
		{"failed", http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			state := tc.state
			app := &testApp{router: NewRouter(svc, reg, func() string { return state }, logger)}

			rr := app.do(t, http.MethodGet, "/healthz", "")
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			got := decode[map[string]string](t, rr)
			if got["status"] != tc.wantStatus || got["broker"] != tc.state {
				t.Fatalf("unexpected health body %v", got)
			}
		})
	}
}
