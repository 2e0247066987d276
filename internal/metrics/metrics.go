// Package metrics exposes Prometheus collectors for the catalog crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlPagesTotal            *prometheus.CounterVec
	crawlListingsTotal         *prometheus.CounterVec
	itemsPersistedTotal        *prometheus.CounterVec
	crawlDurationSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_pages_total",
				Help: "Total number of result pages crawled, labeled by category.",
			},
			[]string{"category"},
		)

		crawlListingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_listings_total",
				Help: "Total number of listings processed, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		itemsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "items_persisted_total",
				Help: "Total number of items written to the store, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		crawlDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawl_duration_seconds",
				Help:    "Histogram of full crawl run durations, labeled by category.",
				Buckets: []float64{1, 5, 15, 60, 180, 600, 1800},
			},
			[]string{"category"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records the page and listing counts of a finished crawl run.
func ObserveCrawl(category string, pages, extracted, skipped int, duration time.Duration) {
	crawlPagesTotal.WithLabelValues(category).Add(float64(pages))
	crawlListingsTotal.WithLabelValues(category, "extracted").Add(float64(extracted))
	crawlListingsTotal.WithLabelValues(category, "skipped").Add(float64(skipped))
	crawlDurationSeconds.WithLabelValues(category).Observe(duration.Seconds())
}

// ObservePersistence records how many items of a batch landed in the store.
func ObservePersistence(category string, saved, failed int) {
	itemsPersistedTotal.WithLabelValues(category, "saved").Add(float64(saved))
	itemsPersistedTotal.WithLabelValues(category, "failed").Add(float64(failed))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
