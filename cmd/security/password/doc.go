// Package password holds the password policy applied at registration and the
// credential comparison used at login.
//
// Passwords are stored as given; this package does not hash. Comparison is
// exact string equality performed in constant time.
package password
