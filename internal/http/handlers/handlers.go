package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/logging"
	"github.com/caseclarity/backend/internal/service"
)

type Handler struct {
	Store     db.Store
	Cases     *service.CaseService
	Users     *service.UserService
	Intake    *service.IntakeService
	Monitor   *service.MonitorService
	Health    *service.HealthService
	Assistant ai.Intake
	Analyzer  ai.Analyzer
	Drafter   ai.Drafter
	Logs      *logging.Buffer
	Validator *validator.Validate
	Logger    zerolog.Logger

	VerifyToken    string
	AppSecret      string
	RequestTimeout time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bind decodes the JSON body and runs struct validation, writing the error
// response itself when either step fails.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

// llmContext bounds calls that reach the LLM provider.
func (h *Handler) llmContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// writeServiceError maps domain and provider errors onto the response envelope.
func (h *Handler) writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "CONFLICT", "Invalid status transition", nil)
	case errors.Is(err, service.ErrEmailInUse):
		writeError(c, http.StatusConflict, "EMAIL_IN_USE", "Email already in use", gin.H{"field": "email"})
	case errors.Is(err, service.ErrAuthUnavailable):
		writeError(c, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication is not configured", nil)
	case errors.Is(err, service.ErrNotConfigured):
		writeError(c, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Credential storage is not configured", nil)
	case errors.Is(err, ai.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
	case errors.Is(err, ai.ErrProvider), errors.Is(err, ai.ErrInvalidOutput):
		h.Logger.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDHeader)).Msg("llm call failed")
		writeError(c, http.StatusBadGateway, "LLM_ERROR", "The AI provider could not complete the request", nil)
	default:
		h.Logger.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDHeader)).Msg(fallback)
		writeError(c, http.StatusInternalServerError, "DB_ERROR", fallback, err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
