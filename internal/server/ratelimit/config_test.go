package ratelimit

import "testing"

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(10, 120, 0)
	defer cfg.Close()

	if cfg.Login.Scope != ScopeIP {
		t.Error("Login tier should have IP scope")
	}
	if cfg.Write.Scope != ScopeUser || cfg.Read.Scope != ScopeUser {
		t.Error("Write and Read tiers should have User scope")
	}
	if cfg.Login.Limiter.burst != 10 || cfg.Write.Limiter.burst != 20 {
		t.Errorf("bursts = %d, %d", cfg.Login.Limiter.burst, cfg.Write.Limiter.burst)
	}
	if cfg.Read.Limiter != nil {
		t.Error("Read tier should be disabled")
	}
}

func TestConfig_Match(t *testing.T) {
	cfg := NewConfig(10, 120, 6000)
	defer cfg.Close()

	tests := []struct {
		method     string
		path       string
		wantUnauth string
		wantAuth   string
	}{
		{"POST", "/api/auth/login", "login", "write"},
		{"GET", "/api/health", "", ""},
		{"GET", "/api/tables", "", "read"},
		{"GET", "/api/tables/export", "", "read"},
		{"POST", "/api/tables/query", "", "read"},
		{"POST", "/api/tables", "", "write"},
		{"PUT", "/api/tables/rows", "", "write"},
		{"DELETE", "/api/tables", "", "write"},
		{"PUT", "/api/metadata", "", "write"},
		{"OPTIONS", "/api/tables", "", ""},
	}
	name := func(tier *Tier) string {
		if tier == nil {
			return ""
		}
		return tier.Name
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if got := name(cfg.MatchUnauth(tt.method, tt.path)); got != tt.wantUnauth {
				t.Errorf("MatchUnauth = %q, want %q", got, tt.wantUnauth)
			}
			if got := name(cfg.MatchAuth(tt.method, tt.path)); got != tt.wantAuth {
				t.Errorf("MatchAuth = %q, want %q", got, tt.wantAuth)
			}
		})
	}

	off := NewConfig(0, 0, 0)
	defer off.Close()
	if off.MatchUnauth("POST", "/api/auth/login") != nil || off.MatchAuth("POST", "/api/tables") != nil {
		t.Error("disabled tiers matched")
	}
}
