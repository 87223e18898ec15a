package authapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/password"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/token"
)

const (
	msgInvalidBody       = "Invalid request body"
	msgCredentialsNeeded = "Email and password are required"
	msgEmailNeeded       = "Email is required"
	msgUserExists        = "User already exists"
	msgInvalidLogin      = "Invalid credentials"
	msgNoToken           = "No token provided"
	msgUserNotFound      = "User not found"
	msgEmailInUse        = "Email already in use"
	msgProfileUpdated    = "Profile updated successfully"
	msgResetSent         = "Password reset instructions sent to your email"
	msgLoggedOut         = "Logged out successfully"
	msgInternal          = "Internal server error"
	msgMethodNotAllowed  = "Method not allowed"
)

// Handler wires HTTP auth endpoints to the identity service.
type Handler struct {
	log *slog.Logger
	cfg Config

	identity *identity.Service

	notifier LoginNotifier
	reporter ErrorReporter
	observer OperationObserver
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithLoginNotifier overrides the default no-op login notifier.
func WithLoginNotifier(n LoginNotifier) HandlerOption {
	return func(h *Handler) {
		if h == nil || n == nil {
			return
		}
		h.notifier = n
	}
}

// WithErrorReporter overrides the default no-op error reporter.
func WithErrorReporter(r ErrorReporter) HandlerOption {
	return func(h *Handler) {
		if h == nil || r == nil {
			return
		}
		h.reporter = r
	}
}

// WithOperationObserver records the outcome of every identity operation.
func WithOperationObserver(o OperationObserver) HandlerOption {
	return func(h *Handler) {
		if h == nil || o == nil {
			return
		}
		h.observer = o
	}
}

// NewHandler constructs an auth Handler over svc.
func NewHandler(log *slog.Logger, svc *identity.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("authapi: nil identity service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		identity: svc,
		notifier: NoopLoginNotifier{},
		reporter: NoopErrorReporter{},
		observer: noopObserver{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/auth/profile", h.handleMe)
	mux.HandleFunc("/api/auth/update-profile", h.handleUpdateProfile)
	mux.HandleFunc("/api/auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx := r.Context()
	res, err := h.identity.Register(ctx, identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.observe("register", err)
		switch {
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, h.validationMessage(err))
		case identity.IsConflict(err):
			writeError(w, http.StatusBadRequest, msgUserExists)
		default:
			h.internalError(w, r, "auth.register", err)
		}
		return
	}
	h.observe("register", nil)
	h.auditRegister(ctx, res.User.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Token:   res.Token,
		User:    toUserSummary(res.User),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	res, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.observe("login", err)
		switch {
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, msgCredentialsNeeded)
		case identity.IsUnauthorized(err):
			h.auditLoginFailed(ctx, ip, ua, "invalid_credentials")
			writeError(w, http.StatusUnauthorized, msgInvalidLogin)
		default:
			h.internalError(w, r, "auth.login", err)
		}
		return
	}
	h.observe("login", nil)
	h.auditLoginSuccess(ctx, res.User.ID, ip, ua)

	if h.cfg.NotifyOnLogin {
		h.notifyLogin(ctx, LoginNotice{
			UserID:    res.User.ID,
			Email:     res.User.Email,
			Name:      res.User.Name,
			At:        time.Now().UTC(),
			IP:        ip,
			UserAgent: ua,
		})
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   res.Token,
		User:    toUserSummary(res.User),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	tok := bearerToken(r)
	if tok == "" {
		h.observe("resolve_token", identity.ErrUnauthorized)
		writeError(w, http.StatusUnauthorized, msgNoToken)
		return
	}

	u, err := h.identity.ResolveToken(r.Context(), tok)
	h.observe("resolve_token", err)
	if err != nil {
		h.writeLookupError(w, r, "auth.me", err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Success: true,
		User:    toUserProfile(u),
	})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	tok := bearerToken(r)
	if tok == "" {
		h.observe("update_profile", identity.ErrUnauthorized)
		writeError(w, http.StatusUnauthorized, msgNoToken)
		return
	}

	ctx := r.Context()

	// An unknown caller is reported before a bad body.
	var patch identity.ProfilePatch
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &patch); err != nil {
		if _, lookupErr := h.identity.ResolveToken(ctx, tok); lookupErr != nil {
			h.observe("update_profile", lookupErr)
			h.writeLookupError(w, r, "auth.update_profile", lookupErr)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	u, err := h.identity.UpdateProfile(ctx, tok, patch)
	h.observe("update_profile", err)
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusBadRequest, msgEmailInUse)
		default:
			h.writeLookupError(w, r, "auth.update_profile", err)
		}
		return
	}
	h.auditProfileUpdated(ctx, u.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), patch.Email.Set)

	writeJSON(w, http.StatusOK, updateProfileResponse{
		Success: true,
		Message: msgProfileUpdated,
		User:    toUserProfile(u),
	})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx := r.Context()
	err := h.identity.ForgotPassword(ctx, req.Email)
	h.observe("forgot_password", err)
	if err != nil {
		switch {
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, msgEmailNeeded)
		case identity.IsNotFound(err):
			h.auditForgotPassword(ctx, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), false)
			writeError(w, http.StatusNotFound, msgUserNotFound)
		default:
			h.internalError(w, r, "auth.forgot_password", err)
		}
		return
	}
	h.auditForgotPassword(ctx, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), true)

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msgResetSent})
}

// handleLogout is stateless: tokens are never stored, so there is nothing to revoke.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.observe("logout", nil)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msgLoggedOut})
}

// ---- helpers ----

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	return false
}

func bearerToken(r *http.Request) string {
	return token.FromAuthorization(r.Header.Get("Authorization"))
}

// writeLookupError maps errors from token resolution and profile reads.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case identity.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, msgNoToken)
	case identity.IsNotFound(err):
		writeError(w, http.StatusNotFound, msgUserNotFound)
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, msgInvalidBody)
	default:
		h.internalError(w, r, op, err)
	}
}

// validationMessage renders a register validation failure for clients.
func (h *Handler) validationMessage(err error) string {
	policy := h.identity.PasswordPolicy()
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters", policy.MinLength)
	case errors.Is(err, password.ErrPasswordTooLong):
		return fmt.Sprintf("Password must be at most %d characters", policy.MaxLength)
	default:
		return msgCredentialsNeeded
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the response.
		h.log.Debug(op+".canceled", "err", err)
		return
	}
	h.log.Error(op+".fail", "err", err)
	h.reporter.Report(r, op, err)

	resp := errorResponse{Success: false, Message: msgInternal}
	if h.cfg.ExposeInternalErrors {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func (h *Handler) notifyLogin(ctx context.Context, notice LoginNotice) {
	if err := h.notifier.NotifyLogin(ctx, notice); err != nil {
		h.log.Warn("auth.login.notify.fail", "user_id", notice.UserID, "err", err)
	}
}

func (h *Handler) observe(op string, err error) {
	h.observer.ObserveOperation(op, operationResult(err))
}

// operationResult labels an identity outcome for metrics.
func operationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case identity.IsInvalidInput(err):
		return "invalid"
	case identity.IsConflict(err):
		return "conflict"
	case identity.IsUnauthorized(err):
		return "unauthorized"
	case identity.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
