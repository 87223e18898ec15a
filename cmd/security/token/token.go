package token

import "strings"

const (
	// Prefix is the literal every issued token starts with.
	Prefix = "token"

	// Delimiter separates Prefix and the id.
	Delimiter = "-"
)

// Issue returns the bearer token for id.
func Issue(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	if strings.Contains(id, Delimiter) {
		return "", ErrIDDelimiter
	}
	return Prefix + Delimiter + id, nil
}

// Parse extracts the id from a bearer token by splitting on Delimiter and
// taking the second component. It is stricter than a plain split: a prefix
// other than Prefix, a trailing component ("token-<id>-x") or an empty id is
// ErrMalformed.
func Parse(tok string) (string, error) {
	if tok == "" {
		return "", ErrMissing
	}
	parts := strings.Split(tok, Delimiter)
	if len(parts) != 2 || parts[0] != Prefix || parts[1] == "" {
		return "", ErrMalformed
	}
	return parts[1], nil
}

// FromAuthorization extracts the token from an Authorization header value
// ("Bearer <token>", scheme case-insensitive).
// It returns "" when the header is absent or carries no token.
func FromAuthorization(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}
