// Package identity stores user accounts and login sessions in the document
// store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tabledesk/tabledesk/internal/docstore"
)

// UsersCollection holds user accounts.
const UsersCollection = "users"

var (
	errUserFieldsRequired = errors.New("username and password are required")

	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user has the username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole is returned for a role other than admin or user.
	ErrInvalidRole = errors.New("invalid role")
)

// Role is a user's permission level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates s. The empty string is RoleUser.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidRole, s)
	}
}

// Allows reports whether r meets the required role.
// Role hierarchy: admin > user.
func (r Role) Allows(required Role) bool {
	level := map[Role]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}
	l, ok := level[r]
	return ok && l >= level[required]
}

// User is an account as exposed to callers.
type User struct {
	Username string `json:"username" bson:"username"`
	Name     string `json:"name" bson:"name"`
	Role     Role   `json:"role" bson:"role"`
}

type userDoc struct {
	Username     string    `json:"username" bson:"username"`
	Name         string    `json:"name" bson:"name"`
	Role         Role      `json:"role" bson:"role"`
	PasswordHash string    `json:"passwordHash" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

func (d *userDoc) user() *User {
	return &User{Username: d.Username, Name: d.Name, Role: d.Role}
}

// Account is a user to create, with a plain-text password.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     Role   `yaml:"role"`
}

// DefaultAccounts are the demo accounts created on first start.
var DefaultAccounts = []Account{
	{Username: "admin", Password: "admin123", Name: "بەڕێوەبەر", Role: RoleAdmin},
	{Username: "user", Password: "user123", Name: "بەکارهێنەر", Role: RoleUser},
}

// UserService handles user accounts and password checks.
type UserService struct {
	db   docstore.Store
	cost int
	now  func() time.Time
}

// NewUserService returns a UserService storing accounts in db.
func NewUserService(db docstore.Store) *UserService {
	return &UserService{db: db, cost: bcrypt.DefaultCost, now: time.Now}
}

// Create adds a user.
func (s *UserService) Create(ctx context.Context, a Account) (*User, error) {
	username := strings.TrimSpace(a.Username)
	if username == "" || a.Password == "" {
		return nil, errUserFieldsRequired
	}
	role, err := ParseRole(string(a.Role))
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	name := a.Name
	if name == "" {
		name = username
	}
	d := &userDoc{Username: username, Name: name, Role: role, PasswordHash: string(hash), CreatedAt: s.now().UTC()}
	if err := s.db.InsertOne(ctx, UsersCollection, d); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	return d.user(), nil
}

// Get retrieves a user by username.
func (s *UserService) Get(ctx context.Context, username string) (*User, error) {
	d, err := s.find(ctx, username)
	if err != nil {
		return nil, err
	}
	return d.user(), nil
}

// Authenticate verifies user credentials. Unknown users and wrong passwords
// both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	d, err := s.find(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return d.user(), nil
}

// EnsureAccounts creates each account that does not exist yet. Existing
// accounts are left untouched. It returns how many were created.
func (s *UserService) EnsureAccounts(ctx context.Context, accounts []Account) (int, error) {
	n := 0
	for _, a := range accounts {
		if _, err := s.Create(ctx, a); errors.Is(err, ErrUserExists) {
			continue
		} else if err != nil {
			return n, fmt.Errorf("account %q: %w", a.Username, err)
		}
		n++
	}
	return n, nil
}

func (s *UserService) find(ctx context.Context, username string) (*userDoc, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}
	var d userDoc
	if err := s.db.FindOne(ctx, UsersCollection, docstore.Filter{"username": username}, &d); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &d, nil
}
