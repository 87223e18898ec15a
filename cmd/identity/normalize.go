package identity

import "strings"

// DefaultName derives a display name from an email address: the part before
// the first "@", or the whole address when there is none.
func DefaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
