package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordMissing  = errors.New("password missing")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
)
