package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"healthwatch-server/models"
	"healthwatch-server/utils"
)

// AuthService checks credentials and issues access tokens.
type AuthService struct {
	users  *UserStore
	jwt    *JWTService
	logger *zap.Logger
}

func NewAuthService(users *UserStore, jwt *JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, jwt: jwt, logger: logger}
}

// LoginResult is the login response body.
type LoginResult struct {
	*AccessToken
	User *models.User `json:"user"`
}

// Login verifies email and password. Unknown emails, wrong passwords and
// disabled accounts all fail with the same ErrAuthentication.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) || !user.IsActive {
		return nil, fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	}

	token, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("🔐 User logged in", zap.Uint("user_id", user.ID))
	return &LoginResult{AccessToken: token, User: user}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrAuthentication)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrAuthentication)
	}
	return user, nil
}
