// Package token encodes and decodes the bearer tokens handed to clients.
//
// A token is the fixed prefix "token-" followed by the user id. Tokens carry
// no signature and no expiry: anyone who knows a user id can forge one. This
// is a compatibility scheme for existing clients, not an authentication
// mechanism.
//
// Ids embedded in tokens must not contain the "-" delimiter.
package token
