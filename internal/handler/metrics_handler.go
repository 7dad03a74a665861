package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/metrics"
	"github.com/etbur/eschool-portal/pkg/response"
)

// ReadinessCheck probes one dependency of the gateway.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler serves health, readiness and metrics endpoints.
type MetricsHandler struct {
	metrics *metrics.Service
	checks  map[string]ReadinessCheck
}

func NewMetricsHandler(svc *metrics.Service) *MetricsHandler {
	return &MetricsHandler{metrics: svc, checks: map[string]ReadinessCheck{}}
}

// WithCheck registers a named readiness probe.
func (h *MetricsHandler) WithCheck(name string, check ReadinessCheck) *MetricsHandler {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

// Prometheus exposes the registry in the text exposition format.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary returns the aggregated client counters as JSON.
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health is the liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every registered probe and answers 503 when any fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](c.Request.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
