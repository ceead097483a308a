package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Speech        SpeechConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// AllowedChatIDs restricts commands to specific chats; empty means no restriction
	AllowedChatIDs []int64 `envconfig:"TELEGRAM_ALLOWED_CHAT_IDS"`
}

type AIConfig struct {
	// ProvidersFile is the reloadable capability -> provider document
	ProvidersFile string `envconfig:"AI_PROVIDERS_FILE" default:"providers.yaml"`

	// BillingURL is the generation metadata endpoint queried by generation ID
	BillingURL string `envconfig:"AI_BILLING_URL" default:"https://openrouter.ai/api/v1/generation"`

	// RequestTimeout bounds a single provider call. Image and video capable
	// models routinely take minutes, hence the generous default.
	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"5m"`

	// MaxRetries bounds retries after a retryable soft failure (3 attempts total)
	MaxRetries int           `envconfig:"AI_MAX_RETRIES" default:"2"`
	RetryDelay time.Duration `envconfig:"AI_RETRY_DELAY" default:"1s"`

	// GeneratedImagesDir is where generated images are persisted
	GeneratedImagesDir string `envconfig:"AI_GENERATED_IMAGES_DIR" default:"generated_images"`

	// MaxTrackedChats bounds the per-chat image cache
	MaxTrackedChats int `envconfig:"AI_MAX_TRACKED_CHATS" default:"256"`
}

type SpeechConfig struct {
	WhisperPath string `envconfig:"SPEECH_WHISPER_PATH" default:"whisper"`
	YtDlpPath   string `envconfig:"SPEECH_YTDLP_PATH" default:"yt-dlp"`
	TempDir     string `envconfig:"SPEECH_TEMP_DIR"`
	CookiesFile string `envconfig:"SPEECH_COOKIES_FILE"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
