package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tabledesk/tabledesk/internal/identity"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TABLEDESK_HTTP", "TABLEDESK_LOG_LEVEL", "TABLEDESK_DB_URL", "MONGO_URL", "TABLEDESK_DB_NAME", "DB_NAME",
		"TABLEDESK_JWT_SECRET", "JWT_SECRET", "TABLEDESK_COLLATION", "TABLEDESK_SESSION_TTL",
		"TABLEDESK_LOGIN_PER_MINUTE", "TABLEDESK_WRITE_PER_MINUTE", "TABLEDESK_READ_PER_MINUTE", "TABLEDESK_MAX_UPLOAD_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tabledesk.yaml")
	data := `
http: ":9000"
log_level: debug
database:
  url: mongodb://db:27017
  name: tables_test
auth:
  session_ttl: 2h
  accounts:
    - username: root
      password: pw
      role: admin
limits:
  login_per_minute: 3
collation: ckb
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP != ":9000" || cfg.LogLevel != "debug" || cfg.Database.Name != "tables_test" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %s", cfg.Auth.SessionTTL)
	}
	want := []identity.Account{{Username: "root", Password: "pw", Role: identity.RoleAdmin}}
	if diff := cmp.Diff(want, cfg.Auth.Accounts); diff != "" {
		t.Errorf("accounts (-want +got):\n%s", diff)
	}
	if cfg.Limits.LoginPerMinute != 3 || cfg.Limits.WritePerMinute != Default().Limits.WritePerMinute {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if len(identity.DefaultAccounts) != 2 {
		t.Errorf("DefaultAccounts modified: %+v", identity.DefaultAccounts)
	}

	if err := os.WriteFile(path, []byte("http: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MONGO_URL":                  "mongodb://legacy",
		"DB_NAME":                    "legacy",
		"TABLEDESK_DB_NAME":          "preferred",
		"TABLEDESK_SESSION_TTL":      "90m",
		"TABLEDESK_LOGIN_PER_MINUTE": "7",
		"TABLEDESK_MAX_UPLOAD_BYTES": "1024",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Database.URL != "mongodb://legacy" || cfg.Database.Name != "preferred" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Auth.SessionTTL != 90*time.Minute || cfg.Limits.LoginPerMinute != 7 || cfg.Limits.MaxUploadBytes != 1024 {
		t.Errorf("cfg = %+v", cfg)
	}

	for _, k := range []string{"TABLEDESK_SESSION_TTL", "TABLEDESK_READ_PER_MINUTE", "TABLEDESK_MAX_UPLOAD_BYTES"} {
		bad := map[string]string{k: "lots"}
		if err := Default().applyEnv(func(k string) string { return bad[k] }); err == nil {
			t.Errorf("applyEnv accepted %s=lots", k)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log_level", func(c *Config) { c.LogLevel = "verbose" }},
		{"http", func(c *Config) { c.HTTP = " " }},
		{"database", func(c *Config) { c.Database.URL = "" }},
		{"ttl", func(c *Config) { c.Auth.SessionTTL = 0 }},
		{"rate", func(c *Config) { c.Limits.LoginPerMinute = -1 }},
		{"size", func(c *Config) { c.Limits.MaxUploadBytes = -1 }},
		{"role", func(c *Config) { c.Auth.Accounts = []identity.Account{{Username: "a", Password: "b", Role: "root"}} }},
		{"account", func(c *Config) { c.Auth.Accounts = []identity.Account{{Username: "a"}} }},
		{"collation", func(c *Config) { c.Collation = "not a tag!" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Validate succeeded")
			}
		})
	}
}

func TestEnsureSecret(t *testing.T) {
	c := Default()
	if err := c.EnsureSecret(); err != nil {
		t.Fatal(err)
	}
	if len(c.Auth.JWTSecret) != 64 || !c.Auth.GeneratedSecret {
		t.Errorf("secret = %q, generated = %v", c.Auth.JWTSecret, c.Auth.GeneratedSecret)
	}
	c = Default()
	c.Auth.JWTSecret = "fixed"
	if err := c.EnsureSecret(); err != nil || c.Auth.JWTSecret != "fixed" || c.Auth.GeneratedSecret {
		t.Errorf("EnsureSecret replaced a configured secret")
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		if got, err := ParseLogLevel(in); err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("ParseLogLevel(trace) succeeded")
	}
}
