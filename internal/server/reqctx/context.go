// Package reqctx carries request metadata and the authenticated session
// through a context.
package reqctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/tabledesk/tabledesk/internal/identity"
)

// GetClientIP extracts the client IP from an HTTP request, checking the
// X-Forwarded-For and X-Real-IP headers for proxied requests.
func GetClientIP(r *http.Request) string {
	// The leftmost X-Forwarded-For entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}

type contextKey int

const (
	keyClientIP contextKey = iota
	keyUserAgent
	keySession
)

// WithClientIP adds the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP extracts the client IP from the context.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

// WithUserAgent adds the User-Agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, keyUserAgent, ua)
}

// UserAgent extracts the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}

// WithSession adds the validated session to the context.
func WithSession(ctx context.Context, s *identity.Session) context.Context {
	return context.WithValue(ctx, keySession, s)
}

// Session extracts the validated session from the context, or nil.
func Session(ctx context.Context) *identity.Session {
	v, _ := ctx.Value(keySession).(*identity.Session)
	return v
}

// User returns the user of the validated session, or nil.
func User(ctx context.Context) *identity.User {
	if s := Session(ctx); s != nil {
		return &s.User
	}
	return nil
}
