package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tabledesk/tabledesk/internal/docstore"
)

// SessionsCollection holds login sessions. Sessions are never removed;
// expiry and revocation are checked on each use.
const SessionsCollection = "sessions"

// DefaultSessionTTL is how long a login stays valid.
const DefaultSessionTTL = 24 * time.Hour

var (
	// ErrUnauthenticated is the parent of every token validation failure.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidToken is returned for a malformed, forged or unknown token.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	// ErrSessionExpired is returned once a session's expiry has passed.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrUnauthenticated)
	// ErrSessionRevoked is returned for a session ended by logout.
	ErrSessionRevoked = fmt.Errorf("%w: session revoked", ErrUnauthenticated)
)

// Session is a login.
type Session struct {
	ID        string     `json:"id" bson:"id"`
	TokenHash string     `json:"token" bson:"token"`
	User      User       `json:"user" bson:"user"`
	ClientIP  string     `json:"clientIp,omitempty" bson:"clientIp,omitempty"`
	UserAgent string     `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt" bson:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty" bson:"revokedAt,omitempty"`
}

// SessionService issues and validates bearer tokens backed by a stored
// session.
type SessionService struct {
	db     docstore.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService returns a SessionService signing tokens with secret.
func NewSessionService(db docstore.Store, secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{db: db, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Create starts a session for u and returns its signed token.
func (s *SessionService) Create(ctx context.Context, u *User, clientIP, userAgent string) (string, *Session, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	// The session ID is generated first so it can be embedded in the token.
	sid := uuid.NewString()
	claims := jwt.MapClaims{
		"sub":  u.Username,
		"sid":  sid,
		"role": string(u.Role),
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	if len(userAgent) > 200 {
		userAgent = userAgent[:200]
	}
	sess := &Session{
		ID:        sid,
		TokenHash: hashToken(token),
		User:      *u,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.db.InsertOne(ctx, SessionsCollection, sess); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	return token, sess, nil
}

// Validate checks the token signature, then the stored session it names.
// Errors that mean the caller is not authenticated wrap ErrUnauthenticated;
// any other error comes from the document store.
func (s *SessionService) Validate(ctx context.Context, token string) (*Session, error) {
	sid, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(sess.TokenHash), []byte(hashToken(token))) != 1 {
		return nil, ErrInvalidToken
	}
	if sess.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Revoke ends the session. The document is kept.
func (s *SessionService) Revoke(ctx context.Context, sid string) error {
	now := s.now().UTC()
	err := s.db.UpdateOne(ctx, SessionsCollection, docstore.Filter{"id": sid}, docstore.Set{"revokedAt": now})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvalidToken
	}
	return err
}

func (s *SessionService) parse(token string) (string, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrInvalidToken
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrInvalidToken
	}
	return sid, nil
}

func (s *SessionService) get(ctx context.Context, sid string) (*Session, error) {
	var sess Session
	if err := s.db.FindOne(ctx, SessionsCollection, docstore.Filter{"id": sid}, &sess); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &sess, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
