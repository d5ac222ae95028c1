package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
)

const (
	UserIDKey = "uid"
	UserKey   = "user"
)

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Auth requires a Firebase ID token in the Authorization header and stores
// the caller's uid in the context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			abort(c, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication is not configured")
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}
		uid, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil || uid == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// RequireRole loads the caller's user document and checks its role and status.
func RequireRole(users UserLookup, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(UserIDKey)
		u, err := users.GetUser(c.Request.Context(), uid)
		if errors.Is(err, db.ErrNotFound) {
			abort(c, http.StatusForbidden, "FORBIDDEN", "User profile not found")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load user")
			return
		}
		if u.Status != models.UserActive || u.Role != role {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Set(UserKey, u)
		c.Next()
	}
}
