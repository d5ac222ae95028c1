package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogBufferSize  int           `mapstructure:"LOG_BUFFER_SIZE"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxBodyKB      int64         `mapstructure:"MAX_BODY_KB"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	WhatsAppVerifyToken   string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppPhoneNumberID string `mapstructure:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAccessToken   string `mapstructure:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppAppSecret     string `mapstructure:"WHATSAPP_APP_SECRET"`
	WhatsAppAPIBaseURL    string `mapstructure:"WHATSAPP_API_BASE_URL"`

	LLMProvider   string `mapstructure:"LLM_PROVIDER"`
	LLMModel      string `mapstructure:"LLM_MODEL"`
	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`

	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	BootstrapAdminEmail     string `mapstructure:"BOOTSTRAP_ADMIN_EMAIL"`

	CredentialsSecret string `mapstructure:"CREDENTIALS_SECRET"`
	MonitorSchedule   string `mapstructure:"MONITOR_SCHEDULE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_BUFFER_SIZE", 500)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("MAX_BODY_KB", 512)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "caseclarity")
	v.SetDefault("WHATSAPP_VERIFY_TOKEN", "")
	v.SetDefault("WHATSAPP_PHONE_NUMBER_ID", "")
	v.SetDefault("WHATSAPP_ACCESS_TOKEN", "")
	v.SetDefault("WHATSAPP_APP_SECRET", "")
	v.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v18.0")
	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("CREDENTIALS_SECRET", "")
	v.SetDefault("MONITOR_SCHEDULE", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	return cfg, nil
}

// DatabaseKind reports which store backs DATABASE_URL: "postgres", "mongo" or "".
func (c Config) DatabaseKind() string {
	u := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(u, "mongodb://"), strings.HasPrefix(u, "mongodb+srv://"):
		return "mongo"
	default:
		return ""
	}
}

func (c Config) FirebaseEnabled() bool {
	return strings.TrimSpace(c.FirebaseProjectID) != ""
}
