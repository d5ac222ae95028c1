package ai

import (
	"context"

	"github.com/rs/zerolog"
)

type ProviderConfig struct {
	Provider      string
	Model         string
	GeminiAPIKey  string
	OpenAIBaseURL string
	OpenAIAPIKey  string
}

// NewProvider picks the LLM backend. A provider without credentials falls back
// to MockLLM with a warning so local setups keep working.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger zerolog.Logger) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		if isBlank(cfg.OpenAIBaseURL) || isBlank(cfg.Model) {
			logger.Warn().Msg("OPENAI_BASE_URL or LLM_MODEL not set, using mock LLM")
			return MockLLM{ModelVersion: "mock-v1"}, nil
		}
		return OpenAICompatLLM{
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.OpenAIAPIKey,
			MaxTokens: 2048,
		}, nil
	case "mock":
		return MockLLM{ModelVersion: "mock-v1"}, nil
	default:
		if isBlank(cfg.GeminiAPIKey) {
			logger.Warn().Msg("GEMINI_API_KEY not set, using mock LLM")
			return MockLLM{ModelVersion: "mock-v1"}, nil
		}
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	}
}
