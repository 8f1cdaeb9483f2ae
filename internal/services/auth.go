package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
)

// AuthService covers the public /auth endpoints. A successful login or
// sign-up hands its tokens to the session.
type AuthService struct {
	client   *gateway.Client
	sessions Sessions
}

func NewAuthService(client *gateway.Client, sessions Sessions) *AuthService {
	return &AuthService{client: client, sessions: sessions}
}

// Login exchanges credentials for a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	resp, err := gateway.Post[models.AuthResponse](ctx, s.client, "/auth/login", models.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if _, err := s.start(ctx, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignUp registers an account. When the server answers with tokens the
// session starts immediately; otherwise the email must be verified first.
func (s *AuthService) SignUp(ctx context.Context, user models.NewUser) (*models.AuthResponse, error) {
	resp, err := gateway.Post[models.AuthResponse](ctx, s.client, "/auth/sign-up", user)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return &resp, nil
	}
	if _, err := s.start(ctx, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*models.Message, error) {
	body := map[string]string{"email": email}
	msg, err := gateway.Post[models.Message](ctx, s.client, "/auth/forgot-password", body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *AuthService) NewPassword(ctx context.Context, token, password string) (*models.Message, error) {
	body := map[string]string{"token": token, "password": password}
	msg, err := gateway.Post[models.Message](ctx, s.client, "/auth/new-password", body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.Message, error) {
	body := map[string]string{"token": token}
	msg, err := gateway.Post[models.Message](ctx, s.client, "/auth/verify-email", body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Logout ends the local session. The server keeps no session state to revoke.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

func (s *AuthService) start(ctx context.Context, resp *models.AuthResponse) (*session.TokenPair, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response has no access token", shared.ErrAPIRequest)
	}
	return s.sessions.Login(ctx, resp.AccessToken, resp.RefreshToken)
}
