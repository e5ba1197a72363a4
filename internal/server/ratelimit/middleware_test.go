package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteHeaders(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		retryAfter string
	}{
		{"allowed", Result{Allowed: true, Limit: 60, Remaining: 45, ResetAt: time.Unix(1706012345, 0)}, ""},
		{"limited", Result{Limit: 60, Remaining: 45, ResetAt: time.Unix(1706012345, 0), RetryAfter: 30 * time.Second}, "30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteHeaders(w, tt.result)
			if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
				t.Errorf("X-RateLimit-Limit = %s, want 60", got)
			}
			if got := w.Header().Get("X-RateLimit-Remaining"); got != "45" {
				t.Errorf("X-RateLimit-Remaining = %s, want 45", got)
			}
			if got := w.Header().Get("X-RateLimit-Reset"); got != "1706012345" {
				t.Errorf("X-RateLimit-Reset = %s, want 1706012345", got)
			}
			if got := w.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.retryAfter)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec, Result{Allowed: true, Limit: 5, Remaining: 4})
	http.Error(w, "nope", http.StatusTeapot)
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
	if w.Unwrap() != rec {
		t.Error("Unwrap did not return the underlying writer")
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{ScopeIP, "ip:1.2.3.4:login"},
		{ScopeUser, "user:1.2.3.4:login"},
		{Scope(9), "unknown:1.2.3.4:login"},
	}
	for _, tt := range tests {
		if got := BuildKey(tt.scope, "1.2.3.4", "login"); got != tt.want {
			t.Errorf("BuildKey(%d) = %q, want %q", tt.scope, got, tt.want)
		}
	}
}
