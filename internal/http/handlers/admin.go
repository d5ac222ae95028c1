package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/logging"
	"github.com/caseclarity/backend/internal/service"
)

type IntakeTestRequest struct {
	Message string    `json:"message" validate:"required"`
	History []ai.Turn `json:"history" validate:"dive"`
}

// @Summary List users
// @Tags admin
// @Produce json
// @Success 200 {array} models.User
// @Router /api/admin/users [get]
func (h *Handler) UsersList(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary Create a user
// @Description Registers the login and the user profile. Duplicate emails are rejected with EMAIL_IN_USE.
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body service.CreateUserInput true "user"
// @Success 201 {object} models.User
// @Failure 409 {object} map[string]any
// @Router /api/admin/users [post]
func (h *Handler) UsersCreate(c *gin.Context) {
	var req service.CreateUserInput
	if !h.bind(c, &req) {
		return
	}
	user, err := h.Users.Create(c.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrEmailInUse), errors.Is(err, service.ErrAuthUnavailable):
		h.writeServiceError(c, err, "Failed to create user")
		return
	default:
		h.Logger.Error().Err(err).Msg("user creation failed")
		writeError(c, http.StatusInternalServerError, "AUTH_ERROR", "Failed to create user", nil)
		return
	}
	h.Logger.Info().Str("uid", user.ID).Str("role", user.Role).Msg("user created")
	c.JSON(http.StatusCreated, user)
}

// @Summary System health
// @Tags admin
// @Produce json
// @Success 200 {object} service.HealthReport
// @Router /api/admin/system-health [get]
func (h *Handler) SystemHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.Health.Check(c.Request.Context()))
}

// @Summary Recent log lines
// @Tags admin
// @Produce json
// @Param limit query int false "max entries, default 100"
// @Success 200 {object} map[string]any
// @Router /api/admin/logs [get]
func (h *Handler) AdminLogs(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer", nil)
		return
	}
	if limit == 0 {
		limit = 100
	}
	entries := []logging.Entry{}
	if h.Logs != nil {
		entries = h.Logs.Recent(limit)
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// @Summary Try the intake assistant
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body IntakeTestRequest true "message and prior turns"
// @Success 200 {object} map[string]string
// @Router /api/admin/intake/test [post]
func (h *Handler) IntakeTest(c *gin.Context) {
	var req IntakeTestRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.llmContext(c)
	defer cancel()
	reply, err := h.Assistant.Reply(ctx, req.Message, req.History)
	if err != nil {
		h.writeServiceError(c, err, "Intake test failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}
