package reqctx

import (
	"context"
	"net/http"
	"testing"

	"github.com/tabledesk/tabledesk/internal/identity"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"xff_single", map[string]string{"X-Forwarded-For": "203.0.113.195"}, "127.0.0.1:8080", "203.0.113.195"},
		{"xff_multiple", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:8080", "203.0.113.195"},
		{"xff_spaces", map[string]string{"X-Forwarded-For": "  203.0.113.195  "}, "127.0.0.1:8080", "203.0.113.195"},
		{"x_real_ip", map[string]string{"X-Real-IP": "203.0.113.195"}, "127.0.0.1:8080", "203.0.113.195"},
		{"xff_wins", map[string]string{"X-Forwarded-For": "203.0.113.195", "X-Real-IP": "10.0.0.1"}, "127.0.0.1:8080", "203.0.113.195"},
		{"remote_with_port", nil, "192.168.1.1:12345", "192.168.1.1"},
		{"remote_without_port", nil, "192.168.1.1", "192.168.1.1"},
		{"ipv6_with_port", nil, "[::1]:8080", "::1"},
		{"ipv6_without_port", nil, "[::1]", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if ClientIP(ctx) != "" || UserAgent(ctx) != "" || Session(ctx) != nil || User(ctx) != nil {
		t.Fatal("empty context returned values")
	}
	s := &identity.Session{ID: "sid", User: identity.User{Username: "alice", Role: identity.RoleAdmin}}
	ctx = WithSession(WithUserAgent(WithClientIP(ctx, "10.0.0.1"), "curl"), s)
	if got := ClientIP(ctx); got != "10.0.0.1" {
		t.Errorf("ClientIP = %q", got)
	}
	if got := UserAgent(ctx); got != "curl" {
		t.Errorf("UserAgent = %q", got)
	}
	if Session(ctx) != s {
		t.Error("Session mismatch")
	}
	if u := User(ctx); u == nil || u.Username != "alice" {
		t.Errorf("User = %+v", u)
	}
}
