package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/http/middleware"
)

// @Summary Dashboard summary
// @Description Case counts by decision status and the caller's latest court-portal check.
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.Summary
// @Router /api/dashboard/summary [get]
func (h *Handler) DashboardSummary(c *gin.Context) {
	summary, err := h.Cases.Summary(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.writeServiceError(c, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
