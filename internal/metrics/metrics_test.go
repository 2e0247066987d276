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

	if crawlPagesTotal == nil || crawlListingsTotal == nil ||
		itemsPersistedTotal == nil || httpRequestsTotal == nil ||
		httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCrawl(t *testing.T) {
	Init()

	ObserveCrawl("metrics-test-crawl", 3, 40, 2, 5*time.Second)

	if val := testutil.ToFloat64(crawlPagesTotal.WithLabelValues("metrics-test-crawl")); val != 3 {
		t.Errorf("expected crawlPagesTotal to be 3, got %f", val)
	}
	if val := testutil.ToFloat64(crawlListingsTotal.WithLabelValues("metrics-test-crawl", "extracted")); val != 40 {
		t.Errorf("expected extracted listings to be 40, got %f", val)
	}
	if val := testutil.ToFloat64(crawlListingsTotal.WithLabelValues("metrics-test-crawl", "skipped")); val != 2 {
		t.Errorf("expected skipped listings to be 2, got %f", val)
	}
}

func TestObservePersistence(t *testing.T) {
	Init()

	ObservePersistence("metrics-test-persist", 9, 1)

	if val := testutil.ToFloat64(itemsPersistedTotal.WithLabelValues("metrics-test-persist", "saved")); val != 9 {
		t.Errorf("expected saved items to be 9, got %f", val)
	}
	if val := testutil.ToFloat64(itemsPersistedTotal.WithLabelValues("metrics-test-persist", "failed")); val != 1 {
		t.Errorf("expected failed items to be 1, got %f", val)
	}
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/middleware-test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/middleware-test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}()

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val < 1 {
		t.Errorf("expected httpRequestsTotal for GET 200 to be at least 1, got %f", val)
	}
}
