package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if capturesTotal == nil || captureDurationSeconds == nil ||
		queueDepth == nil || httpRequestsTotal == nil || httpRequestDuration == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveCapture("SUCCESS", 2*time.Second)
	if val := testutil.ToFloat64(capturesTotal.WithLabelValues("SUCCESS")); val < 1 {
		t.Errorf("expected capture counter >= 1, got %f", val)
	}

	SetQueueDepth("PENDING", 7)
	if val := testutil.ToFloat64(queueDepth.WithLabelValues("PENDING")); val != 7 {
		t.Errorf("expected queue depth 7, got %f", val)
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/references", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/references", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200")); val < 1 {
		t.Errorf("expected request counter >= 1, got %f", val)
	}
}

func TestMiddlewareImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	// Handler writes a body without calling WriteHeader.
	r.Get("/v1/references/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"TOTAL":0}`))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200"))

	req := httptest.NewRequest(http.MethodGet, "/v1/references/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200"))
	if after != before+1 {
		t.Errorf("expected counter to advance by 1, got %f -> %f", before, after)
	}
}

func TestMiddlewareUnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "404")); val < 1 {
		t.Errorf("expected 404 counter >= 1, got %f", val)
	}
}
