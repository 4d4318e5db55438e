package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the planning pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationDuration *prometheus.HistogramVec
	blocksPlaced       *prometheus.CounterVec
	fallbackTotal      prometheus.Counter
	oracleLatency      prometheus.Observer
	requestResolutions *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plan_generation_duration_seconds",
		Help:    "Duration of plan generation per unit of work",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})

	blocksPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_blocks_placed_total",
		Help: "Total blocks placed by generation",
	}, []string{"kind"})

	fallbackTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plan_oracle_fallback_total",
		Help: "Generations that fell back to deterministic placement",
	})

	oracleLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oracle_request_duration_seconds",
		Help:    "Latency of placement oracle calls",
		Buckets: prometheus.DefBuckets,
	})

	requestResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_request_resolutions_total",
		Help: "Change requests resolved, by outcome",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationDuration, blocksPlaced, fallbackTotal, oracleLatency, requestResolutions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationDuration: generationDuration,
		blocksPlaced:       blocksPlaced,
		fallbackTotal:      fallbackTotal,
		oracleLatency:      oracleLatency,
		requestResolutions: requestResolutions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveGeneration records one generation unit's duration and output.
func (m *MetricsService) ObserveGeneration(scope string, blocks int, kind string, usedFallback bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(scope).Observe(duration.Seconds())
	m.blocksPlaced.WithLabelValues(kind).Add(float64(blocks))
	if usedFallback {
		m.fallbackTotal.Inc()
	}
}

// ObserveOracleCall records placement oracle latency.
func (m *MetricsService) ObserveOracleCall(duration time.Duration) {
	if m == nil || m.oracleLatency == nil {
		return
	}
	m.oracleLatency.Observe(duration.Seconds())
}

// ObserveRequestResolution counts a change-request outcome.
func (m *MetricsService) ObserveRequestResolution(status string) {
	if m == nil {
		return
	}
	m.requestResolutions.WithLabelValues(status).Inc()
}
