package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	radar "github.com/krisalay/package-radar"
)

// Overview serves GET /api/packages?names=a,b[&refresh=true].
func (h *Handler) Overview(c *gin.Context) {
	var names []string
	for _, raw := range c.QueryArray("names") {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "names query parameter is required"})
		return
	}

	summaries, err := h.dashboard.Overview(c.Request.Context(), names, fetchOptions(c)...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": summaries})
}

// Versions serves GET /api/packages/:name/versions.
func (h *Handler) Versions(c *gin.Context) {
	name := c.Param("name")
	versions, err := h.dashboard.Timeline(c.Request.Context(), name, fetchOptions(c)...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": name, "versions": versions})
}

// Changelog serves GET /api/packages/:name/versions/:version/changelog.
func (h *Handler) Changelog(c *gin.Context) {
	release, err := h.dashboard.Changelog(c.Request.Context(), c.Param("name"), c.Param("version"), fetchOptions(c)...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}

// Refresh serves DELETE /api/packages/:name/cache.
func (h *Handler) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.dashboard.Refresh(c.Param("name"))})
}

// fetchOptions maps ?refresh=true to a forced refresh.
func fetchOptions(c *gin.Context) []radar.FetchOption {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	if refresh {
		return []radar.FetchOption{radar.WithForceRefresh()}
	}
	return nil
}
