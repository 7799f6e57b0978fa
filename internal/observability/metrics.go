package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_jobs_enqueued_total",
			Help: "Total number of index jobs inserted",
		},
		[]string{"source"},
	)
	JobsClaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_claimed_total",
			Help: "Total number of index jobs claimed by this instance",
		},
	)
	JobsSucceededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_succeeded_total",
			Help: "Total number of index jobs completed successfully",
		},
	)
	JobsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_failed_total",
			Help: "Total number of index jobs that failed",
		},
	)
	JobsRetriedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_retried_total",
			Help: "Total number of retry jobs scheduled",
		},
	)
	JobsExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_exhausted_total",
			Help: "Total number of jobs that failed with no retries remaining",
		},
	)

	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_documents_total",
			Help: "Total number of document operations issued to the search backend",
		},
		[]string{"index", "action"},
	)
	BulkFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "index_bulk_flush_duration_seconds",
			Help:    "Duration of bulk flushes against the search backend",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	BulkErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_bulk_errors_total",
			Help: "Total number of per-item errors reported by bulk flushes",
		},
	)
	WorkersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_workers_busy",
			Help: "Number of worker goroutines currently executing a job",
		},
	)
)

// InitMetrics registers all collectors. Call once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(JobsEnqueuedTotal)
	prometheus.MustRegister(JobsClaimedTotal)
	prometheus.MustRegister(JobsSucceededTotal)
	prometheus.MustRegister(JobsFailedTotal)
	prometheus.MustRegister(JobsRetriedTotal)
	prometheus.MustRegister(JobsExhaustedTotal)
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(BulkFlushDuration)
	prometheus.MustRegister(BulkErrorsTotal)
	prometheus.MustRegister(WorkersBusy)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
