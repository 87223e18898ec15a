// Package ids provides user id generators for the identity service.
//
// Ids never contain "-": bearer tokens are "token-<id>" and are split on that
// delimiter.
package ids

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator returns a fresh id for a record created at now.
type Generator func(now time.Time) (string, error)

// Supported generator schemes.
const (
	SchemeULID = "ulid"
	SchemeTime = "time"
)

// NewULID returns a new ULID string (26 chars, Crockford base32).
// ULIDs are lexicographically sortable and carry 80 random bits, so two ids
// minted in the same millisecond do not collide.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTimeID returns the Unix millisecond timestamp of now in decimal.
// Two calls within the same millisecond return the same id; callers must
// check for collisions.
func NewTimeID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return strconv.FormatInt(now.UnixMilli(), 10), nil
}

// ForScheme returns the generator registered under scheme.
func ForScheme(scheme string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeULID:
		return NewULID, nil
	case SchemeTime:
		return NewTimeID, nil
	default:
		return nil, fmt.Errorf("ids: unknown scheme %q", scheme)
	}
}
