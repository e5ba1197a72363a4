// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses the authenticated username as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for different tiers. A tier with a nil Limiter
// is not enforced.
type Config struct {
	Login Tier
	Write Tier
	Read  Tier
}

// NewConfig creates a Config allowing the given number of requests per minute
// in each tier. Zero disables a tier.
//   - Login: IP scope, the whole quota may be spent at once
//   - Write: user scope, bursts of a sixth of the quota
//   - Read: user scope, bursts of a sixth of the quota
func NewConfig(loginPerMinute, writePerMinute, readPerMinute int) *Config {
	return &Config{
		Login: newTier("login", loginPerMinute, loginPerMinute, ScopeIP),
		Write: newTier("write", writePerMinute, max(writePerMinute/6, 1), ScopeUser),
		Read:  newTier("read", readPerMinute, max(readPerMinute/6, 1), ScopeUser),
	}
}

func newTier(name string, perMinute, burst int, scope Scope) Tier {
	t := Tier{Name: name, Scope: scope}
	if perMinute > 0 {
		t.Limiter = NewLimiter(perMinute, time.Minute, burst)
	}
	return t
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if method == http.MethodPost && path == "/api/auth/login" {
		return c.Login.active()
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}

	// Queries are reads even though they use POST.
	if method == http.MethodPost && path == "/api/tables/query" {
		return c.Read.active()
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.Write.active()
	case http.MethodGet, http.MethodHead:
		return c.Read.active()
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []*Tier{&c.Login, &c.Write, &c.Read} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}

func (t *Tier) active() *Tier {
	if t.Limiter == nil {
		return nil
	}
	return t
}
