package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

// serverMetrics are registered on a per-server registry so several servers
// can coexist in one process.
type serverMetrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec

	imagesConsumed prometheus.Counter
	lastBuild      *prometheus.GaugeVec
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{registry: prometheus.NewRegistry()}
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeimage_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)
	m.httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rangeimage_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	m.imagesConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rangeimage_images_consumed_total",
		Help: "Range images handed to the monitor.",
	})
	m.lastBuild = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rangeimage_last_build",
			Help: "Build statistics of the most recently consumed range image.",
		},
		[]string{"stat"},
	)
	m.registry.MustRegister(m.httpRequestsTotal, m.httpDurationSeconds, m.imagesConsumed, m.lastBuild)
	return m
}

// observeImage records the build statistics of img.
func (m *serverMetrics) observeImage(img *l3grid.RangeImage) {
	st := img.Stats()
	m.imagesConsumed.Inc()
	m.lastBuild.WithLabelValues("points").Set(float64(st.Points))
	m.lastBuild.WithLabelValues("written").Set(float64(st.Written))
	m.lastBuild.WithLabelValues("skipped").Set(float64(st.Skipped))
	m.lastBuild.WithLabelValues("collisions").Set(float64(st.Collisions))
}

// handler serves the registry in the Prometheus text format.
func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// middleware records request count and duration for each request.
func (m *serverMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		code := strconv.Itoa(rw.statusCode)
		path := routeLabel(r)
		m.httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		m.httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeLabel is the mux pattern that served r, set by http.ServeMux on the
// shared request. Unmatched requests share one series.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "other"
	}
	return r.Pattern
}
