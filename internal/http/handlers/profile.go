package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/service"
)

// @Summary Register the caller's profile
// @Description Creates the user profile for the signed-in account on first login. The email comes from the auth provider.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body service.RegisterInput false "profile"
// @Success 200 {object} models.User
// @Success 201 {object} models.User
// @Failure 409 {object} map[string]any
// @Router /api/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	uid := c.GetString(middleware.UserIDKey)
	user, created, err := h.Users.Register(c.Request.Context(), uid, req)
	if errors.Is(err, service.ErrNoAccountEmail) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "The signed-in account has no email", gin.H{"field": "email"})
		return
	}
	if err != nil {
		h.writeServiceError(c, err, "Failed to register user")
		return
	}
	if !created {
		c.JSON(http.StatusOK, user)
		return
	}
	h.Logger.Info().Str("uid", user.ID).Str("role", user.Role).Msg("user registered")
	c.JSON(http.StatusCreated, user)
}
