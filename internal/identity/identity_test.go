package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tabledesk/tabledesk/internal/docstore"
)

func newDB(t *testing.T) docstore.Store {
	t.Helper()
	db, err := docstore.OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newUsers(t *testing.T, db docstore.Store) *UserService {
	t.Helper()
	s := NewUserService(db)
	s.cost = bcrypt.MinCost
	return s
}

func TestRole(t *testing.T) {
	tests := []struct {
		have, need Role
		want       bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{Role("guest"), RoleUser, false},
	}
	for _, tt := range tests {
		if got := tt.have.Allows(tt.need); got != tt.want {
			t.Errorf("%q.Allows(%q) = %v, want %v", tt.have, tt.need, got, tt.want)
		}
	}
	if r, err := ParseRole(""); err != nil || r != RoleUser {
		t.Errorf("ParseRole(\"\") = %q, %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ParseRole(root) = %v, want ErrInvalidRole", err)
	}
}

func TestUserService(t *testing.T) {
	ctx := t.Context()
	s := newUsers(t, newDB(t))

	u, err := s.Create(ctx, Account{Username: " alice ", Password: "pw", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "alice" || u.Name != "alice" || u.Role != RoleAdmin {
		t.Errorf("Create = %+v", u)
	}
	if _, err := s.Create(ctx, Account{Username: "alice", Password: "other"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("Create duplicate = %v, want ErrUserExists", err)
	}
	if _, err := s.Create(ctx, Account{Username: "bob"}); err == nil {
		t.Error("Create without password succeeded")
	}
	if _, err := s.Create(ctx, Account{Username: "bob", Password: "pw", Role: "root"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Create bad role = %v, want ErrInvalidRole", err)
	}

	got, err := s.Authenticate(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if *got != *u {
		t.Errorf("Authenticate = %+v, want %+v", got, u)
	}
	for _, c := range [][2]string{{"alice", "wrong"}, {"nobody", "pw"}, {"", ""}} {
		if _, err := s.Authenticate(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate(%q, %q) = %v, want ErrInvalidCredentials", c[0], c[1], err)
		}
	}
	if _, err := s.Get(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get(nobody) = %v, want ErrUserNotFound", err)
	}
}

func TestUserService_EnsureAccounts(t *testing.T) {
	ctx := t.Context()
	s := newUsers(t, newDB(t))
	n, err := s.EnsureAccounts(ctx, DefaultAccounts)
	if err != nil || n != 2 {
		t.Fatalf("EnsureAccounts = %d, %v; want 2", n, err)
	}
	n, err = s.EnsureAccounts(ctx, DefaultAccounts)
	if err != nil || n != 0 {
		t.Fatalf("EnsureAccounts again = %d, %v; want 0", n, err)
	}
	u, err := s.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Role != RoleAdmin || u.Name != "بەڕێوەبەر" {
		t.Errorf("admin = %+v", u)
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSessionService(t *testing.T) {
	ctx := t.Context()
	db := newDB(t)
	c := &clock{t: time.Now()}
	s := NewSessionService(db, "secret", time.Hour)
	s.now = c.now
	u := &User{Username: "alice", Name: "Alice", Role: RoleAdmin}

	token, sess, err := s.Create(ctx, u, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.ID != sess.ID || got.User != *u || got.ClientIP != "10.0.0.1" {
		t.Errorf("Validate = %+v", got)
	}

	t.Run("tampered", func(t *testing.T) {
		if _, err := s.Validate(ctx, token+"x"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate = %v, want ErrInvalidToken", err)
		}
		other := NewSessionService(db, "other", time.Hour)
		if _, err := other.Validate(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate with other secret = %v, want ErrInvalidToken", err)
		}
		if _, err := s.Validate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Validate(\"\") = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("unknown_session", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "alice",
			"sid": "not-stored",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Validate(ctx, forged); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": sess.ID}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Validate(ctx, none); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		saved := c.t
		defer func() { c.t = saved }()
		c.t = c.t.Add(time.Hour)
		if _, err := s.Validate(ctx, token); !errors.Is(err, ErrSessionExpired) {
			t.Errorf("Validate = %v, want ErrSessionExpired", err)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		token2, sess2, err := s.Create(ctx, u, "", "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Revoke(ctx, sess2.ID); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		if _, err := s.Validate(ctx, token2); !errors.Is(err, ErrSessionRevoked) {
			t.Errorf("Validate = %v, want ErrSessionRevoked", err)
		}
		if _, err := s.Validate(ctx, token); err != nil {
			t.Errorf("other session affected: %v", err)
		}
		if err := s.Revoke(ctx, "missing"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Revoke(missing) = %v, want ErrInvalidToken", err)
		}
	})
}
