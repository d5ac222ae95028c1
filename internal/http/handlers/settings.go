package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/service"
)

// @Summary Stored court-portal credentials
// @Tags settings
// @Produce json
// @Success 200 {object} service.CredentialsView
// @Router /api/settings/credentials [get]
func (h *Handler) CredentialsGet(c *gin.Context) {
	view, err := h.Monitor.GetCredentials(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.writeServiceError(c, err, "Failed to load credentials")
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Update court-portal credentials
// @Description Omitted fields keep their stored value.
// @Tags settings
// @Accept json
// @Produce json
// @Param payload body service.CredentialsInput true "credentials"
// @Success 200 {object} service.CredentialsView
// @Failure 503 {object} map[string]any
// @Router /api/settings/credentials [put]
func (h *Handler) CredentialsSave(c *gin.Context) {
	var req service.CredentialsInput
	if !h.bind(c, &req) {
		return
	}
	view, err := h.Monitor.SaveCredentials(c.Request.Context(), c.GetString(middleware.UserIDKey), req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to save credentials")
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Run the MEV check now
// @Tags settings
// @Produce json
// @Success 200 {object} models.MonitorRun
// @Router /api/settings/monitor [post]
func (h *Handler) MonitorRun(c *gin.Context) {
	run, err := h.Monitor.Run(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		h.writeServiceError(c, err, "Failed to run monitor")
		return
	}
	c.JSON(http.StatusOK, run)
}
