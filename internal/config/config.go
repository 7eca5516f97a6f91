package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module loads configuration for the fx graph.
var Module = fx.Provide(Load, NewNotificationConfigHolder)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// BaseURL is the public portal URL embedded in emailed links.
	BaseURL string

	AuthTokenSecret  string
	AuthCookieSecure bool
	SessionTTL       time.Duration
	MagicLinkTTL     time.Duration

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBSSLMode         string
	DBAnonUser        string
	DBAnonPassword    string
	DBServiceUser     string
	DBServicePassword string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled bool
	MagicLinkRate    float64
	MagicLinkBurst   int
	PublicAPIRate    float64
	PublicAPIBurst   int
	CronLockTTL      time.Duration

	SchedulerJobs string

	CronSecret         string
	SlackBotToken      string
	SlackWebhookSecret string
	SlackChannel       string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	BootstrapAdminEmail string

	OTLPEndpoint string
}

// Load loads configuration from environment variables and .env file.
// The service-role database credentials are mandatory: privileged writes
// (invitation acceptance, approval, cron) cannot degrade to the anon role.
func Load() (Config, error) {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "sponsorhub"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),

		AuthTokenSecret:  strings.TrimSpace(getenv("AUTH_TOKEN_SECRET", "")),
		AuthCookieSecure: authCookieSecure,
		SessionTTL:       getenvDuration("SESSION_TTL", 7*24*time.Hour),
		MagicLinkTTL:     getenvDuration("MAGIC_LINK_TTL", 15*time.Minute),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "sponsorhub"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBAnonUser:        getenv("DATABASE_ANON_USER", "sponsorhub_anon"),
		DBAnonPassword:    getenv("DATABASE_ANON_PASSWORD", ""),
		DBServiceUser:     strings.TrimSpace(getenv("DATABASE_SERVICE_USER", "")),
		DBServicePassword: strings.TrimSpace(getenv("DATABASE_SERVICE_PASSWORD", "")),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		RateLimitEnabled: getenvBool("RATE_LIMIT_ENABLED", false),
		MagicLinkRate:    getenvFloat("RATE_LIMIT_MAGIC_LINK_RATE", 0.2),
		MagicLinkBurst:   getenvInt("RATE_LIMIT_MAGIC_LINK_BURST", 3),
		PublicAPIRate:    getenvFloat("RATE_LIMIT_PUBLIC_API_RATE", 10),
		PublicAPIBurst:   getenvInt("RATE_LIMIT_PUBLIC_API_BURST", 30),
		CronLockTTL:      getenvDuration("CRON_LOCK_TTL", 5*time.Minute),

		SchedulerJobs: getenv("SCHEDULER_JOBS", ""),

		CronSecret:         strings.TrimSpace(getenv("CRON_SECRET", "")),
		SlackBotToken:      strings.TrimSpace(getenv("SLACK_BOT_TOKEN", "")),
		SlackWebhookSecret: strings.TrimSpace(getenv("SLACK_WEBHOOK_SECRET", "")),
		SlackChannel:       getenv("SLACK_CHANNEL", "#sponsors"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		EmailFrom:    getenv("EMAIL_FROM", "no-reply@sponsorhub.dev"),

		BootstrapAdminEmail: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.DBType != "sqlite" {
		if cfg.DBServiceUser == "" || cfg.DBServicePassword == "" {
			return Config{}, errors.New("config: DATABASE_SERVICE_USER and DATABASE_SERVICE_PASSWORD are required")
		}
	}
	if cfg.AuthTokenSecret == "" {
		return Config{}, errors.New("config: AUTH_TOKEN_SECRET is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
