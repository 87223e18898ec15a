package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity/ids"
	"github.com/vashistbar27/Gudage-hospital/cmd/internal/notify"
)

// Supported identity backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Env       string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	Store    string
	IDScheme string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	MongoURI      string
	MongoDatabase string

	RedisURL string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	MetricsEnabled bool
	SentryDSN      string

	NotifyLogin bool
	SMTP        notify.SMTPConfig
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Env:       strings.ToLower(EnvString("GUDAGE_ENV", "development")),
		HTTPAddr:  EnvString("GUDAGE_HTTP_ADDR", "0.0.0.0:5000"),
		LogLevel:  EnvString("GUDAGE_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("GUDAGE_LOG_FORMAT", "json")),

		ReadHeaderTimeout: EnvDuration("GUDAGE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("GUDAGE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("GUDAGE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("GUDAGE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("GUDAGE_HTTP_MAX_HEADER_BYTES", 1<<20),

		Store:    strings.ToLower(EnvString("GUDAGE_STORE", StoreMemory)),
		IDScheme: strings.ToLower(EnvString("GUDAGE_ID_SCHEME", ids.SchemeULID)),

		DatabaseURL: EnvString("GUDAGE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("GUDAGE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("GUDAGE_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("GUDAGE_DB_MIGRATE", true),

		MongoURI:      EnvString("GUDAGE_MONGO_URI", ""),
		MongoDatabase: EnvString("GUDAGE_MONGO_DATABASE", "gudage"),

		RedisURL: EnvString("GUDAGE_REDIS_URL", ""),

		CORSAllowedOrigins:   EnvList("GUDAGE_CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowCredentials: EnvBool("GUDAGE_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("GUDAGE_CORS_MAX_AGE_SECONDS", 600),

		MetricsEnabled: EnvBool("GUDAGE_METRICS_ENABLED", true),
		SentryDSN:      EnvString("GUDAGE_SENTRY_DSN", ""),

		NotifyLogin: EnvBool("GUDAGE_NOTIFY_LOGIN", false),
		SMTP:        notify.LoadSMTPConfigFromEnv(),
	}
}

// IsDevelopment reports whether the development posture is active.
func (c Config) IsDevelopment() bool { return c.Env == "development" }

// ValidateConfig rejects configurations the server cannot start with.
func ValidateConfig(cfg Config) error {
	var errs []error

	switch cfg.Env {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("config: GUDAGE_ENV must be development or production, got %q", cfg.Env))
	}

	switch cfg.LogFormat {
	case "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("config: GUDAGE_LOG_FORMAT must be json or pretty, got %q", cfg.LogFormat))
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("config: GUDAGE_STORE=postgres requires GUDAGE_DATABASE_URL"))
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("config: GUDAGE_STORE=mongo requires GUDAGE_MONGO_URI"))
		}
		if strings.TrimSpace(cfg.MongoDatabase) == "" {
			errs = append(errs, errors.New("config: GUDAGE_MONGO_DATABASE is empty"))
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("config: GUDAGE_STORE=redis requires GUDAGE_REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown GUDAGE_STORE %q", cfg.Store))
	}

	if _, err := ids.ForScheme(cfg.IDScheme); err != nil {
		errs = append(errs, fmt.Errorf("config: GUDAGE_ID_SCHEME: %w", err))
	}

	if cfg.NotifyLogin && !cfg.SMTP.Enabled() {
		errs = append(errs, errors.New("config: GUDAGE_NOTIFY_LOGIN=true requires GUDAGE_SMTP_HOST"))
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
