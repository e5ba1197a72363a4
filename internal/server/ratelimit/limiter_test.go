package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for i := range 5 {
		result := l.Allow("test:key")
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("expected Limit=5, got %d", result.Limit)
		}
		if result.RetryAfter != 0 {
			t.Errorf("RetryAfter should be 0 for allowed requests, got %v", result.RetryAfter)
		}
	}

	result := l.Allow("test:key")
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}
	if result.RetryAfter < 11*time.Second || result.RetryAfter > 13*time.Second {
		t.Errorf("expected RetryAfter about 12s, got %v", result.RetryAfter)
	}
	if !result.ResetAt.After(time.Now()) {
		t.Errorf("ResetAt %v should be in the future", result.ResetAt)
	}
}

func TestLimiter_DifferentKeys(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for range 5 {
		l.Allow("key1")
	}
	if l.Allow("key1").Allowed {
		t.Error("key1 should be rate limited")
	}
	for range 5 {
		if !l.Allow("key2").Allowed {
			t.Error("key2 should not be rate limited")
		}
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(60, time.Minute, 10)
	defer l.Close()
	l.Allow("idle")
	l.Allow("busy")
	for range 10 {
		l.Allow("busy")
	}

	l.cleanup(time.Now().Add(5 * time.Minute))
	if len(l.buckets) != 2 {
		t.Fatalf("fresh buckets removed: %d left", len(l.buckets))
	}
	// After 11 minutes both buckets refilled; both are stale.
	l.cleanup(time.Now().Add(11 * time.Minute))
	if len(l.buckets) != 0 {
		t.Errorf("stale buckets kept: %d left", len(l.buckets))
	}
}

func TestLimiter_CloseTwice(t *testing.T) {
	l := NewLimiter(1, time.Minute, 1)
	l.Close()
	l.Close()
}
