package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krisalay/package-radar/navigation"
)

// TimelineRequest selects a package.
type TimelineRequest struct {
	Package *navigation.PackageRef `json:"package"`
}

// ChangelogRequest selects a package and one of its versions.
type ChangelogRequest struct {
	Package *navigation.PackageRef `json:"package"`
	Version *navigation.VersionRef `json:"version"`
}

// NavigationState serves GET /api/navigation.
func (h *Handler) NavigationState(c *gin.Context) {
	c.JSON(http.StatusOK, h.nav.State())
}

// NavigateDashboard serves POST /api/navigation/dashboard.
func (h *Handler) NavigateDashboard(c *gin.Context) {
	h.nav.ToDashboard()
	c.JSON(http.StatusOK, h.nav.State())
}

// NavigateTimeline serves POST /api/navigation/timeline.
func (h *Handler) NavigateTimeline(c *gin.Context) {
	var req TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.nav.ToTimeline(req.Package); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.nav.State())
}

// NavigateChangelog serves POST /api/navigation/changelog.
func (h *Handler) NavigateChangelog(c *gin.Context) {
	var req ChangelogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.nav.ToChangelog(req.Package, req.Version); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.nav.State())
}

// NavigateBack serves POST /api/navigation/back.
func (h *Handler) NavigateBack(c *gin.Context) {
	h.nav.Back()
	c.JSON(http.StatusOK, h.nav.State())
}
