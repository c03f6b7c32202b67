package service

import (
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"context"
	"time"
)

type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	Me(ctx context.Context, actor *auth.Actor) (*model.User, error)
}

// Accounts is the slice of the users service that authentication needs.
type Accounts interface {
	Create(ctx context.Context, req *model.RegisterRequest, role string) (*model.User, error)
	Authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.User, error)
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type authService struct {
	accounts Accounts
	tokens   TokenIssuer
	cfg      *config.Config
}

func NewAuthService(accounts Accounts, tokens TokenIssuer, cfg *config.Config) AuthService {
	return &authService{
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// Register always creates customers. Admins come from the seed or a role
// change by another admin.
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	user, err := s.accounts.Create(ctx, req, config.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.respond(user)
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.accounts.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("User logged in", "id", user.ID, "role", user.Role)
	return s.respond(user)
}

func (s *authService) Me(ctx context.Context, actor *auth.Actor) (*model.User, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return s.accounts.GetByID(ctx, actor, actor.UserID)
}

func (s *authService) respond(user *model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	return &model.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
