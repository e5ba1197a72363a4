// Package config loads the server configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tabledesk/tabledesk/internal/docstore"
	"github.com/tabledesk/tabledesk/internal/identity"
)

// Config holds all tabledesk settings.
type Config struct {
	HTTP     string   `yaml:"http"`
	LogLevel string   `yaml:"log_level"` // debug, info, warn, error
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Limits   Limits   `yaml:"limits"`
	// Collation is the BCP 47 language used to sort names and ranks.
	Collation string `yaml:"collation"`
}

// Database selects the document store.
type Database struct {
	// URL is a mongodb://, postgres://, sqlite:// or file:// URL, or a
	// directory path.
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Auth configures login sessions.
type Auth struct {
	JWTSecret  string             `yaml:"jwt_secret"`
	SessionTTL time.Duration      `yaml:"session_ttl"`
	Accounts   []identity.Account `yaml:"accounts"`

	// GeneratedSecret is set when JWTSecret was empty and a random one was
	// generated. Sessions then do not survive a restart.
	GeneratedSecret bool `yaml:"-"`
}

// Limits are request quotas.
type Limits struct {
	LoginPerMinute int   `yaml:"login_per_minute"`
	WritePerMinute int   `yaml:"write_per_minute"`
	ReadPerMinute  int   `yaml:"read_per_minute"`
	MaxBodyBytes   int64 `yaml:"max_body_bytes"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP:     "localhost:8080",
		LogLevel: "info",
		Database: Database{URL: "./data", Name: docstore.DefaultDatabase},
		Auth: Auth{
			SessionTTL: identity.DefaultSessionTTL,
			Accounts:   identity.DefaultAccounts,
		},
		Limits: Limits{
			LoginPerMinute: 10,
			WritePerMinute: 120,
			ReadPerMinute:  6000,
			MaxBodyBytes:   8 << 20,
			MaxUploadBytes: 32 << 20,
		},
		Collation: "und",
	}
}

// Load returns the defaults overridden by the YAML file at path, if it
// exists, then by the environment. A .env file in the working directory is
// loaded into the environment first; variables already set win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables. MONGO_URL and
// DB_NAME are accepted for existing deployments.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	str(&c.HTTP, "TABLEDESK_HTTP")
	str(&c.LogLevel, "TABLEDESK_LOG_LEVEL")
	str(&c.Database.URL, "TABLEDESK_DB_URL", "MONGO_URL")
	str(&c.Database.Name, "TABLEDESK_DB_NAME", "DB_NAME")
	str(&c.Auth.JWTSecret, "TABLEDESK_JWT_SECRET", "JWT_SECRET")
	str(&c.Collation, "TABLEDESK_COLLATION")
	if v := getenv("TABLEDESK_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TABLEDESK_SESSION_TTL: %w", err)
		}
		c.Auth.SessionTTL = d
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"TABLEDESK_LOGIN_PER_MINUTE", &c.Limits.LoginPerMinute},
		{"TABLEDESK_WRITE_PER_MINUTE", &c.Limits.WritePerMinute},
		{"TABLEDESK_READ_PER_MINUTE", &c.Limits.ReadPerMinute},
	}
	for _, i := range ints {
		if v := getenv(i.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", i.key, err)
			}
			*i.dst = n
		}
	}
	if v := getenv("TABLEDESK_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TABLEDESK_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Limits.MaxUploadBytes = n
	}
	return nil
}

// EnsureSecret generates a random JWT secret when none is configured.
func (c *Config) EnsureSecret() error {
	if c.Auth.JWTSecret != "" {
		return nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	c.Auth.JWTSecret = hex.EncodeToString(b)
	c.Auth.GeneratedSecret = true
	return nil
}

// Language returns the parsed collation language.
func (c *Config) Language() language.Tag {
	t, err := language.Parse(c.Collation)
	if err != nil {
		return language.Und
	}
	return t
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP) == "" {
		errs = append(errs, errors.New("http address is empty"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database url is empty"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session_ttl must be positive, got %s", c.Auth.SessionTTL))
	}
	for _, a := range c.Auth.Accounts {
		if a.Username == "" || a.Password == "" {
			errs = append(errs, errors.New("accounts need a username and a password"))
		}
		if _, err := identity.ParseRole(string(a.Role)); err != nil {
			errs = append(errs, fmt.Errorf("account %q: %w", a.Username, err))
		}
	}
	if c.Limits.LoginPerMinute < 0 || c.Limits.WritePerMinute < 0 || c.Limits.ReadPerMinute < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.Limits.MaxBodyBytes < 0 || c.Limits.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("size limits must not be negative"))
	}
	if _, err := language.Parse(c.Collation); err != nil {
		errs = append(errs, fmt.Errorf("collation %q: %w", c.Collation, err))
	}
	return errors.Join(errs...)
}
