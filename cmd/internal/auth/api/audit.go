package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Audit events are structured log lines; passwords and tokens are never included.

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.register", userID, ip, ua)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.login.success", userID, ip, ua)
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua string, reason string) {
	h.audit(ctx, "auth.login.failed", "", ip, ua, slog.String("reason", reason))
}

func (h *Handler) auditProfileUpdated(ctx context.Context, userID string, ip net.IP, ua string, emailProvided bool) {
	h.audit(ctx, "auth.profile.updated", userID, ip, ua, slog.Bool("email_provided", emailProvided))
}

func (h *Handler) auditForgotPassword(ctx context.Context, ip net.IP, ua string, found bool) {
	h.audit(ctx, "auth.forgot_password", "", ip, ua, slog.Bool("found", found))
}

func (h *Handler) audit(ctx context.Context, action string, userID string, ip net.IP, ua string, extra ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	attrs := make([]slog.Attr, 0, 4+len(extra))
	attrs = append(attrs, slog.String("action", action))
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if ip != nil {
		attrs = append(attrs, slog.String("ip", ip.String()))
	}
	if ua = strings.TrimSpace(ua); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	attrs = append(attrs, extra...)

	h.log.LogAttrs(ctx, slog.LevelInfo, "auth.audit", attrs...)
}
