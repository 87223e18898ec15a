package password

import "crypto/subtle"

// Matches reports whether the supplied password equals the stored one.
// The comparison is exact (no trimming, no case folding).
func Matches(stored, supplied string) bool {
	if len(stored) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
