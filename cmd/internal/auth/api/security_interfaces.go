package authapi

import (
	"context"
	"net"
	"net/http"
	"time"
)

// LoginNotice is the canonical payload for login notification delivery.
type LoginNotice struct {
	UserID    string
	Email     string
	Name      string
	At        time.Time
	IP        net.IP
	UserAgent string
}

// LoginNotifier tells a user that their account was just used to sign in.
type LoginNotifier interface {
	NotifyLogin(ctx context.Context, notice LoginNotice) error
}

// NoopLoginNotifier is the default notifier.
type NoopLoginNotifier struct{}

// NotifyLogin does nothing.
func (NoopLoginNotifier) NotifyLogin(_ context.Context, _ LoginNotice) error { return nil }

// ErrorReporter forwards unexpected (500) errors to an external tracker.
type ErrorReporter interface {
	Report(r *http.Request, op string, err error)
}

// NoopErrorReporter is the default reporter.
type NoopErrorReporter struct{}

// Report does nothing.
func (NoopErrorReporter) Report(_ *http.Request, _ string, _ error) {}

// OperationObserver counts identity operations by outcome.
type OperationObserver interface {
	ObserveOperation(op, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(_, _ string) {}
