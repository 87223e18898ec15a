package token

import "errors"

// Public, stable errors for callers.
var (
	ErrEmptyID     = errors.New("token: empty id")
	ErrIDDelimiter = errors.New("token: id contains delimiter")
	ErrMissing     = errors.New("token: missing")
	ErrMalformed   = errors.New("token: malformed")
)
