package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/server/reqctx"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	users    *identity.UserService
	sessions *identity.SessionService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services) *AuthHandler {
	return &AuthHandler{users: svc.Users, sessions: svc.Sessions}
}

// Login checks the credentials and starts a session.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	u, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, APIError(err)
	}
	token, sess, err := h.sessions.Create(ctx, u, reqctx.ClientIP(ctx), reqctx.UserAgent(ctx))
	if err != nil {
		return nil, dto.InternalWithError(internalMessage, err)
	}
	slog.InfoContext(ctx, "User logged in", "user", u.Username, "role", u.Role, "session", sess.ID)
	return &dto.LoginResponse{Token: token, Role: string(u.Role), Name: u.Name, Username: u.Username}, nil
}

// Me returns the current session.
func (h *AuthHandler) Me(ctx context.Context, s *identity.Session, req *dto.GetMeRequest) (*dto.MeResponse, error) {
	return &dto.MeResponse{
		Username:  s.User.Username,
		Name:      s.User.Name,
		Role:      string(s.User.Role),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Logout revokes the current session.
func (h *AuthHandler) Logout(ctx context.Context, s *identity.Session, req *dto.LogoutRequest) (*dto.SuccessResponse, error) {
	if err := h.sessions.Revoke(ctx, s.ID); err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "User logged out", "user", s.User.Username, "session", s.ID)
	return dto.Success, nil
}
