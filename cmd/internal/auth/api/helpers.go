package authapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity"
)

func toUserSummary(u identity.User) userSummary {
	return userSummary{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

func toUserProfile(u identity.User) userProfile {
	out := userProfile{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		MobileNumber:      orEmpty(u.MobileNumber),
		AlternativeNumber: orEmpty(u.AlternativeNumber),
		AadharNumber:      orEmpty(u.AadharNumber),
	}
	// An empty avatar renders as null.
	if u.Avatar != nil && *u.Avatar != "" {
		v := *u.Avatar
		out.Avatar = &v
	}
	return out
}

func orEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return net.ParseIP(strings.TrimSpace(r.RemoteAddr))
	}
	return net.ParseIP(host)
}

// parseForwardedIP returns the left-most address of an X-Forwarded-For list.
func parseForwardedIP(raw string) net.IP {
	first, _, _ := strings.Cut(raw, ",")
	return net.ParseIP(strings.TrimSpace(first))
}
