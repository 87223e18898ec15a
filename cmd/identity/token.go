package identity

import (
	"errors"
	"fmt"

	"github.com/vashistbar27/Gudage-hospital/cmd/security/token"
)

// TokenFor returns the bearer token handed out for u.
func TokenFor(u User) (string, error) {
	tok, err := token.Issue(u.ID)
	if err != nil {
		return "", fmt.Errorf("identity: issue token: %w", err)
	}
	return tok, nil
}

// userIDFromToken maps token parse failures onto identity error kinds:
// an absent token is unauthorized, a malformed one resolves to no user.
func userIDFromToken(op, tok string) (string, error) {
	id, err := token.Parse(tok)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, token.ErrMissing):
		return "", OpError{Op: op, Kind: ErrUnauthorized, Msg: "no token provided"}
	default:
		return "", NotFoundError{Op: op, Resource: "user"}
	}
}
