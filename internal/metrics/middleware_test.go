package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	for _, path := range []string{"/test", "/notfound"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if err := resp.Body.Close(); err != nil {
			t.Log(err)
		}
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("expected one GET 200 observation, got %f", val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")); val != 1 {
		t.Errorf("expected one GET 404 observation, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected request durations to be observed, got %d", val)
	}
}

func TestObserveTask(t *testing.T) {
	Init()
	ObserveTask("index", "ok")
	if val := testutil.ToFloat64(workerTasksTotal.WithLabelValues("index", "ok")); val != 1 {
		t.Errorf("expected one task observation, got %f", val)
	}
}
