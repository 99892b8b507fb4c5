package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krisalay/package-radar/types"
)

// InvalidateRequest is the body of POST /api/cache/invalidate.
type InvalidateRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// Metrics serves GET /api/cache/metrics.
func (h *Handler) Metrics(c *gin.Context) {
	sizes := make(map[string]int, len(types.Namespaces()))
	for _, ns := range types.Namespaces() {
		sizes[ns.String()] = h.cache.Len(ns)
	}
	c.JSON(http.StatusOK, gin.H{"metrics": h.cache.Metrics(), "entries": sizes})
}

// ResetMetrics serves POST /api/cache/metrics/reset.
func (h *Handler) ResetMetrics(c *gin.Context) {
	h.cache.ResetMetrics()
	c.JSON(http.StatusOK, gin.H{"metrics": h.cache.Metrics()})
}

// ClearAll serves DELETE /api/cache.
func (h *Handler) ClearAll(c *gin.Context) {
	h.cache.ClearAll()
	c.Status(http.StatusNoContent)
}

// ClearExpired serves POST /api/cache/expired.
func (h *Handler) ClearExpired(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.cache.ClearExpired()})
}

// Invalidate serves DELETE /api/cache/:namespace/:key.
func (h *Handler) Invalidate(c *gin.Context) {
	ns, err := types.ParseNamespace(c.Param("namespace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": h.cache.Invalidate(ns, c.Param("key"))})
}

// InvalidatePattern serves POST /api/cache/invalidate.
func (h *Handler) InvalidatePattern(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.cache.InvalidatePattern(req.Pattern)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}
