// Package metrics exposes Prometheus metrics for the recognition processes and the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "face_attendance"

// Recorder holds every metric on its own registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	framesProcessed *prometheus.CounterVec
	facesDetected   *prometheus.CounterVec
	facesMatched    *prometheus.CounterVec
	analyzerErrors  *prometheus.CounterVec
	frameDuration   *prometheus.HistogramVec
	ledgerWrites    *prometheus.CounterVec
	speechFailures  prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with a fresh registry that also carries the Go runtime collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		framesProcessed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames run through face analysis",
		}, []string{"direction"}),
		facesDetected: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faces_detected_total",
			Help:      "Faces returned by the analysis service",
		}, []string{"direction"}),
		facesMatched: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faces_matched_total",
			Help:      "Faces matched to a registered employee",
		}, []string{"direction"}),
		analyzerErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_errors_total",
			Help:      "Frames skipped because face analysis failed",
		}, []string{"direction"}),
		frameDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent on one frame including persistence and speech",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		ledgerWrites: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Attendance ledger and audit log writes by kind",
		}, []string{"kind"}),
		speechFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_failures_total",
			Help:      "Speech synthesis failures and reasons that could not be understood",
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Dashboard HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) FrameProcessed(direction string, faces int, took time.Duration) {
	if r == nil {
		return
	}
	r.framesProcessed.WithLabelValues(direction).Inc()
	r.facesDetected.WithLabelValues(direction).Add(float64(faces))
	r.frameDuration.WithLabelValues(direction).Observe(took.Seconds())
}

func (r *Recorder) FaceMatched(direction string) {
	if r == nil {
		return
	}
	r.facesMatched.WithLabelValues(direction).Inc()
}

func (r *Recorder) AnalyzerError(direction string) {
	if r == nil {
		return
	}
	r.analyzerErrors.WithLabelValues(direction).Inc()
}

// LedgerWrite counts one write; kind is entry, exit, correction, break or permission.
func (r *Recorder) LedgerWrite(kind string) {
	if r == nil {
		return
	}
	r.ledgerWrites.WithLabelValues(kind).Inc()
}

func (r *Recorder) SpeechFailure() {
	if r == nil {
		return
	}
	r.speechFailures.Inc()
}

// Middleware records request counts and durations labelled by the chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
		r.httpRequestDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}
