package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior.
type Config struct {
	// TrustProxy makes client IP extraction honour X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	MaxBodyBytes int64

	// ExposeInternalErrors adds the error text to 500 responses (development only).
	ExposeInternalErrors bool

	// NotifyOnLogin sends a login notice through the configured LoginNotifier.
	NotifyOnLogin bool
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:           envBool("GUDAGE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:         envInt64("GUDAGE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		ExposeInternalErrors: strings.EqualFold(strings.TrimSpace(os.Getenv("GUDAGE_ENV")), "development"),
		NotifyOnLogin:        envBool("GUDAGE_NOTIFY_LOGIN", false),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
