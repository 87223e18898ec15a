package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Policy controls password validation.
// MaxLength == 0 disables the upper bound.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Policy Policy
}

// DefaultMinLength is the registration minimum, counted in characters.
const DefaultMinLength = 6

// DefaultConfig returns the registration policy used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Policy: Policy{
			MinLength: DefaultMinLength,
			MaxLength: 0,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - GUDAGE_AUTH_PASSWORD_MIN_LENGTH
// - GUDAGE_AUTH_PASSWORD_MAX_LENGTH (0 = unbounded)
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("GUDAGE_AUTH_PASSWORD_MIN_LENGTH"); ok {
		n, err := atoiInRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("GUDAGE_AUTH_PASSWORD_MIN_LENGTH: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("GUDAGE_AUTH_PASSWORD_MAX_LENGTH"); ok {
		n, err := atoiInRange(v, 0, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("GUDAGE_AUTH_PASSWORD_MAX_LENGTH: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if cfg.Policy.MaxLength > 0 && cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiInRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
