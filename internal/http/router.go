package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	limits "github.com/gin-contrib/size"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/caseclarity/backend/internal/config"
	"github.com/caseclarity/backend/internal/http/handlers"
	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/models"

	_ "github.com/caseclarity/backend/docs"
)

// Router wires the public webhook, the authenticated dashboard API and the
// admin routes. verifier may be nil, in which case authenticated routes answer 503.
func Router(cfg config.Config, h *handlers.Handler, verifier middleware.TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhook := r.Group("/api/whatsapp")
	webhook.Use(limits.RequestSizeLimiter(cfg.MaxBodyKB << 10))
	{
		webhook.GET("", h.WebhookVerify)
		webhook.POST("", h.WebhookReceive)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(verifier))
	{
		api.POST("/register", h.Register)
		api.GET("/dashboard/summary", h.DashboardSummary)
		api.GET("/cases", h.CasesList)
		api.GET("/cases/:id", h.CaseDetails)
		api.POST("/cases/:id/decision", h.CaseDecision)
		api.POST("/cases/:id/analysis", h.CaseAnalysis)
		api.POST("/cases/:id/drafts", h.CaseDraft)
		api.POST("/cases/:id/conversation/status", h.CaseConversationStatus)
		api.POST("/ai/analysis", h.AIAnalysis)
		api.POST("/ai/drafts", h.AIDraft)
		api.GET("/settings/credentials", h.CredentialsGet)
		api.PUT("/settings/credentials", h.CredentialsSave)
		api.POST("/settings/monitor", h.MonitorRun)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(h.Store, models.RoleAdmin))
	{
		admin.GET("/users", h.UsersList)
		admin.POST("/users", h.UsersCreate)
		admin.GET("/system-health", h.SystemHealth)
		admin.GET("/logs", h.AdminLogs)
		admin.POST("/intake/test", h.IntakeTest)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
