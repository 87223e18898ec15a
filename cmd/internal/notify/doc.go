// Package notify delivers login notification emails over SMTP.
package notify
