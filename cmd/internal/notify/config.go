package notify

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	// UseSSL dials implicit TLS (port 465). Otherwise STARTTLS is required.
	UseSSL bool

	Timeout time.Duration
}

// Addr returns host:port.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Enabled reports whether a mail server is configured.
func (c SMTPConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

// LoadSMTPConfigFromEnv reads GUDAGE_SMTP_* variables.
func LoadSMTPConfigFromEnv() SMTPConfig {
	cfg := SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("GUDAGE_SMTP_HOST")),
		Port:     587,
		Username: os.Getenv("GUDAGE_SMTP_USERNAME"),
		Password: os.Getenv("GUDAGE_SMTP_PASSWORD"),
		From:     strings.TrimSpace(os.Getenv("GUDAGE_SMTP_FROM")),
		FromName: strings.TrimSpace(os.Getenv("GUDAGE_SMTP_FROM_NAME")),
		Timeout:  30 * time.Second,
	}
	if v := strings.TrimSpace(os.Getenv("GUDAGE_SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GUDAGE_SMTP_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseSSL = b
		}
	} else {
		cfg.UseSSL = cfg.Port == 465
	}
	if v := strings.TrimSpace(os.Getenv("GUDAGE_SMTP_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if cfg.FromName == "" {
		cfg.FromName = "Gudage Hospital"
	}
	return cfg
}
