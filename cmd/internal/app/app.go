// Package app wires the Gudage server runtime: config, logging, the identity
// store backend, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity"
	"github.com/vashistbar27/Gudage-hospital/cmd/identity/ids"
	authapi "github.com/vashistbar27/Gudage-hospital/cmd/internal/auth/api"
	"github.com/vashistbar27/Gudage-hospital/cmd/internal/notify"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/password"
)

// Reporter is the error reporter the app flushes on shutdown.
type Reporter interface {
	authapi.ErrorReporter
	Flush(timeout time.Duration) bool
}

type noopReporter struct{ authapi.NoopErrorReporter }

func (noopReporter) Flush(time.Duration) bool { return true }

// App is the Gudage server runtime: it owns the store and the HTTP server wiring.
type App struct {
	cfg Config
	log Logger

	store    Store
	svc      *identity.Service
	auth     *authapi.Handler
	metrics  *Metrics
	reporter Reporter
}

// Option configures optional App dependencies.
type Option func(*appOptions)

type appOptions struct {
	store    Store
	notifier authapi.LoginNotifier
	reporter Reporter
}

// WithStore injects an already opened store instead of the one cfg selects.
func WithStore(st Store) Option {
	return func(o *appOptions) { o.store = st }
}

// WithNotifier overrides the login notifier built from cfg.SMTP.
func WithNotifier(n authapi.LoginNotifier) Option {
	return func(o *appOptions) { o.notifier = n }
}

// WithReporter overrides the error reporter built from cfg.SentryDSN.
func WithReporter(r Reporter) Option {
	return func(o *appOptions) { o.reporter = r }
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	var o appOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	reporter := o.reporter
	if reporter == nil {
		reporter = noopReporter{}
		if cfg.SentryDSN != "" {
			sr, err := NewSentryReporter(cfg.SentryDSN, cfg.Env)
			if err != nil {
				return nil, err
			}
			reporter = sr
			log.Info("sentry.enabled")
		}
	}

	notifier := o.notifier
	if notifier == nil && cfg.NotifyLogin {
		sender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		notifier = sender
	}

	newID, err := ids.ForScheme(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.IDScheme == ids.SchemeTime {
		log.Warn("identity.id_scheme.time", "note", "millisecond ids can collide under concurrent registration")
	}

	st := o.store
	if st == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		st, err = newStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	}

	svc, err := identity.NewService(st,
		identity.WithIDGenerator(newID),
		identity.WithPasswordConfig(pwCfg),
	)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	var metrics *Metrics
	if cfg.MetricsEnabled {
		metrics = NewMetrics()
	}

	authCfg := authapi.LoadConfigFromEnv()
	authCfg.ExposeInternalErrors = cfg.IsDevelopment()
	authCfg.NotifyOnLogin = notifier != nil

	handlerOpts := []authapi.HandlerOption{
		authapi.WithErrorReporter(reporter),
		authapi.WithLoginNotifier(notifier),
	}
	if metrics != nil {
		handlerOpts = append(handlerOpts, authapi.WithOperationObserver(metrics))
	}
	authHandler, err := authapi.NewHandler(log, svc, authCfg, handlerOpts...)
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		svc:      svc,
		auth:     authHandler,
		metrics:  metrics,
		reporter: reporter,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "env", a.cfg.Env, "store", a.cfg.Store, "metrics", a.metrics != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			runErr = err
		}
	}

	a.Close(shutdownCtx)
	a.log.Info("server.stopped")
	return runErr
}

// Close releases the store and flushes the error reporter.
func (a *App) Close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if !a.reporter.Flush(2 * time.Second) {
		a.log.Warn("sentry.flush.timeout")
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
