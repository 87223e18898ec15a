package app

import "errors"

// ValidateSecurityConfig rejects production configs that would echo any
// origin with credentials enabled.
func ValidateSecurityConfig(cfg Config) error {
	if cfg.IsDevelopment() {
		return nil
	}
	if cfg.CORSAllowCredentials {
		for _, o := range cfg.CORSAllowedOrigins {
			if o == "*" {
				return errors.New("security policy: GUDAGE_CORS_ALLOWED_ORIGINS=* with credentials is not allowed in production")
			}
		}
	}
	return nil
}
