package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/gitnar/metrics"
	"github.com/kart-io/gitnar/internal/pkg/httputils"
	"github.com/kart-io/version"
)

// metricsNamespace prefixes every exported metric name.
const metricsNamespace = "gitnar"

// StatsHandler exposes runtime statistics and health probes.
type StatsHandler struct {
	service *biz.Service
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(service *biz.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

// Stats returns query, retrieval, completion and index counters
// together with cache statistics.
func (h *StatsHandler) Stats(c *gin.Context) {
	stats := metrics.GetQAMetrics().Stats()

	if cacheStats, err := h.service.CacheStats(c.Request.Context()); err == nil {
		stats["cache"] = cacheStats
	}
	httputils.WriteResponse(c, nil, stats)
}

// Metrics exports counters in Prometheus text format.
func (h *StatsHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(metrics.GetQAMetrics().Export(metricsNamespace)))
}

// Health is the liveness probe.
func (h *StatsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Get().GitVersion,
	})
}
