package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/auth"
	"github.com/caseclarity/backend/internal/config"
	"github.com/caseclarity/backend/internal/db"
	httpapi "github.com/caseclarity/backend/internal/http"
	"github.com/caseclarity/backend/internal/http/handlers"
	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/logging"
	"github.com/caseclarity/backend/internal/service"
	"github.com/caseclarity/backend/internal/utils"
	"github.com/caseclarity/backend/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logs := logging.NewBuffer(cfg.LogBufferSize)
	logger := logging.New(cfg.LogLevel, cfg.Env, "caseclarity-backend", logs)
	startedAt := time.Now()

	ctx := context.Background()
	store, err := db.Open(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()
	logger.Info().Str("kind", cfg.DatabaseKind()).Msg("store ready")

	llm, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init llm provider")
	}
	logger.Info().Str("provider", llm.Name()).Msg("llm ready")

	var (
		verifier middleware.TokenVerifier
		identity service.IdentityProvider
	)
	if cfg.FirebaseEnabled() {
		fb, err := auth.NewFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init firebase")
		}
		verifier, identity = fb, fb
	} else {
		logger.Warn().Msg("FIREBASE_PROJECT_ID not set, authenticated routes will answer 503")
	}

	wa := &whatsapp.Client{
		BaseURL:       cfg.WhatsAppAPIBaseURL,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
		HTTP:          &http.Client{Timeout: 15 * time.Second},
	}
	if !wa.Configured() {
		logger.Warn().Msg("whatsapp phone number id or access token not set, replies will not be sent")
	}
	if cfg.WhatsAppVerifyToken == "" {
		logger.Warn().Msg("WHATSAPP_VERIFY_TOKEN not set, webhook verification will fail")
	}

	sealer, err := utils.NewSealer(cfg.CredentialsSecret)
	if err != nil {
		logger.Warn().Err(err).Msg("CREDENTIALS_SECRET missing or invalid, court-portal credentials cannot be stored")
	}

	intake := ai.Intake{LLM: llm}
	analyzer := ai.Analyzer{LLM: llm}
	drafter := ai.Drafter{LLM: llm}

	monitor := &service.MonitorService{Store: store, Sealer: sealer, Logger: logger}
	if err := monitor.Schedule(cfg.MonitorSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.MonitorSchedule).Msg("invalid monitor schedule")
	}
	defer monitor.Stop()

	h := &handlers.Handler{
		Store:     store,
		Cases:     &service.CaseService{Store: store, Analyzer: analyzer, Drafter: drafter},
		Users:     &service.UserService{Store: store, Auth: identity, Logger: logger, BootstrapAdminEmail: cfg.BootstrapAdminEmail},
		Intake:    &service.IntakeService{Store: store, Intake: intake, Sender: wa, Logger: logger},
		Monitor:   monitor,
		Health:    &service.HealthService{Store: store, LLM: llm, WhatsApp: wa, AuthEnabled: verifier != nil, StartedAt: startedAt},
		Assistant: intake,
		Analyzer:  analyzer,
		Drafter:   drafter,
		Logs:      logs,
		Validator: validator.New(),
		Logger:    logger,

		VerifyToken:    cfg.WhatsAppVerifyToken,
		AppSecret:      cfg.WhatsAppAppSecret,
		RequestTimeout: cfg.RequestTimeout,
	}

	router := httpapi.Router(cfg, h, verifier)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
