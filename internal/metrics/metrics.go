package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service collects portal instrumentation: outbound school API calls, token refreshes, store
// dispatches, session expiries and gateway requests. A nil *Service is valid and records nothing.
type Service struct {
	registry         *prometheus.Registry
	handler          http.Handler
	apiDuration      *prometheus.HistogramVec
	apiTotal         *prometheus.CounterVec
	refreshTotal     *prometheus.CounterVec
	dispatchTotal    *prometheus.CounterVec
	sessionExpired   prometheus.Counter
	sessionRemaining prometheus.Gauge
	storeSlices      *prometheus.GaugeVec
	gatewayDuration  *prometheus.HistogramVec
	gatewayTotal     *prometheus.CounterVec

	apiCount         uint64
	apiErrorCount    uint64
	apiDurationTotal uint64
	refreshCount     uint64
	dispatchCount    uint64
	expiryCount      uint64
}

// Snapshot is a point-in-time summary served next to the Prometheus endpoint.
type Snapshot struct {
	APIRequests          uint64    `json:"api_requests"`
	APIErrors            uint64    `json:"api_errors"`
	AverageAPIDurationMs float64   `json:"average_api_duration_ms"`
	TokenRefreshes       uint64    `json:"token_refreshes"`
	Dispatches           uint64    `json:"dispatches"`
	SessionExpiries      uint64    `json:"session_expiries"`
	Goroutines           int       `json:"goroutines"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// New registers the portal collectors on a private registry.
func New() *Service {
	registry := prometheus.NewRegistry()

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "school_api_request_duration_seconds",
		Help:    "Duration of requests to the school API in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	apiTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "school_api_requests_total",
		Help: "Total number of requests to the school API",
	}, []string{"method", "endpoint", "status"})

	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refresh_total",
		Help: "Token refresh attempts by outcome",
	}, []string{"outcome"})

	dispatchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_dispatch_total",
		Help: "Commands applied to the teacher store",
	}, []string{"command"})

	sessionExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_expired_total",
		Help: "Sessions logged out by the inactivity timer",
	})

	sessionRemaining := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_remaining_seconds",
		Help: "Seconds left before the current session expires",
	})

	storeSlices := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "store_slices",
		Help: "Teacher store resource slices by condition",
	}, []string{"condition"})

	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of gateway HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	gatewayTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total number of gateway HTTP requests",
	}, []string{"method", "route", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(apiDuration, apiTotal, refreshTotal, dispatchTotal, sessionExpired, sessionRemaining, storeSlices, gatewayDuration, gatewayTotal, goroutines)

	return &Service{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		apiDuration:      apiDuration,
		apiTotal:         apiTotal,
		refreshTotal:     refreshTotal,
		dispatchTotal:    dispatchTotal,
		sessionExpired:   sessionExpired,
		sessionRemaining: sessionRemaining,
		storeSlices:      storeSlices,
		gatewayDuration:  gatewayDuration,
		gatewayTotal:     gatewayTotal,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Service) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *Service) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveAPIRequest records one call to the school API. Status 0 marks a transport failure.
func (m *Service) ObserveAPIRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.apiDuration.WithLabelValues(method, endpoint, label).Observe(duration.Seconds())
	m.apiTotal.WithLabelValues(method, endpoint, label).Inc()
	atomic.AddUint64(&m.apiCount, 1)
	atomic.AddUint64(&m.apiDurationTotal, uint64(duration.Nanoseconds()))
	if status == 0 || status >= 400 {
		atomic.AddUint64(&m.apiErrorCount, 1)
	}
}

// ObserveRefresh counts a token refresh attempt.
func (m *Service) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.refreshCount, 1)
}

// ObserveDispatch counts a store command.
func (m *Service) ObserveDispatch(command string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(command).Inc()
	atomic.AddUint64(&m.dispatchCount, 1)
}

// ObserveSessionExpired counts an inactivity logout.
func (m *Service) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
	atomic.AddUint64(&m.expiryCount, 1)
}

// SetSessionRemaining publishes the seconds left in the current session.
func (m *Service) SetSessionRemaining(seconds int) {
	if m == nil {
		return
	}
	m.sessionRemaining.Set(float64(seconds))
}

// SetStoreSlices publishes how many store slices are loading or failed.
func (m *Service) SetStoreSlices(loading, failed int) {
	if m == nil {
		return
	}
	m.storeSlices.WithLabelValues("loading").Set(float64(loading))
	m.storeSlices.WithLabelValues("failed").Set(float64(failed))
}

// ObserveHTTPRequest records a gateway request.
func (m *Service) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.gatewayDuration.WithLabelValues(method, route, label).Observe(duration.Seconds())
	m.gatewayTotal.WithLabelValues(method, route, label).Inc()
}

// Snapshot returns aggregated counters.
func (m *Service) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	requests := atomic.LoadUint64(&m.apiCount)
	total := atomic.LoadUint64(&m.apiDurationTotal)

	var avg float64
	if requests > 0 {
		avg = float64(total) / float64(requests) / float64(time.Millisecond)
	}

	return Snapshot{
		APIRequests:          requests,
		APIErrors:            atomic.LoadUint64(&m.apiErrorCount),
		AverageAPIDurationMs: avg,
		TokenRefreshes:       atomic.LoadUint64(&m.refreshCount),
		Dispatches:           atomic.LoadUint64(&m.dispatchCount),
		SessionExpiries:      atomic.LoadUint64(&m.expiryCount),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
}
