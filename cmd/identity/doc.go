// Package identity implements the Gudage identity store: registration, login,
// bearer-token resolution, profile updates and forgot-password checks.
//
// Users are keyed by email. The Service enforces the registration and update
// rules and delegates persistence to a Backend (memory, PostgreSQL, MongoDB or
// Redis). Every Backend performs email re-keying as one atomic step.
package identity
