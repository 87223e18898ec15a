package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter forwards internal errors to Sentry. It owns its hub so that
// nothing leaks into the global Sentry state.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter builds a reporter for dsn. env becomes the Sentry
// environment tag.
func NewSentryReporter(dsn, env string, opts ...func(*sentry.ClientOptions)) (*SentryReporter, error) {
	co := sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	client, err := sentry.NewClient(co)
	if err != nil {
		return nil, fmt.Errorf("sentry: init: %w", err)
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report implements authapi.ErrorReporter.
func (s *SentryReporter) Report(r *http.Request, op string, err error) {
	if s == nil || err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("handler", op)
		if r != nil {
			scope.SetRequest(r)
			if id := RequestIDFromContext(r.Context()); id != "" {
				scope.SetTag("request_id", id)
			}
		}
		s.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (s *SentryReporter) Flush(timeout time.Duration) bool {
	if s == nil {
		return true
	}
	return s.hub.Flush(timeout)
}
