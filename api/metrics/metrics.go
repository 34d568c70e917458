package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesdash_build_info",
			Help: "Build information of the sales dashboard",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesdash_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesdash_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Dataset metrics
	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesdash_dataset_rows",
			Help: "Number of rows in the merged sales table",
		},
	)

	DatasetLoadDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesdash_dataset_load_duration_seconds",
			Help: "Time taken to load and merge the input workbooks",
		},
	)

	DatasetUnmatchedKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesdash_dataset_unmatched_keys",
			Help: "Sales rows whose key had no match in a reference table",
		},
		[]string{"reference"},
	)

	// Dashboard metrics
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdash_updates_total",
			Help: "Total number of dropdown updates, by changed dropdown",
		},
		[]string{"changed"},
	)

	FilteredRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesdash_filtered_rows",
			Help:    "Number of rows matching the selections of a chart request",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)

	NotModifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesdash_not_modified_total",
			Help: "Total number of API responses answered with 304 Not Modified",
		},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			path = rctx.RoutePattern()
		}
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// RecordDataset records the size and quality of a freshly loaded dataset.
func RecordDataset(rows int, loadDuration time.Duration, unmatched map[string]int) {
	DatasetRows.Set(float64(rows))
	DatasetLoadDuration.Set(loadDuration.Seconds())
	for ref, n := range unmatched {
		DatasetUnmatchedKeys.WithLabelValues(ref).Set(float64(n))
	}
}

// RecordUpdate records a dropdown change.
func RecordUpdate(changed string) {
	UpdatesTotal.WithLabelValues(changed).Inc()
}

// RecordFiltered records how many rows a chart request matched.
func RecordFiltered(rows int) {
	FilteredRows.Observe(float64(rows))
}
