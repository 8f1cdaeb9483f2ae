package services

import (
	"context"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
)

// MePath serves the signed-in profile. It lives under /auth because every
// URL containing "/users" is public.
const MePath = "/auth/me"

type UserService struct {
	client *gateway.Client
}

// Register creates an account through the public registration endpoint.
func (s *UserService) Register(ctx context.Context, user models.NewUser) (*models.User, error) {
	out, err := gateway.Post[models.User](ctx, s.client, "/users", user)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the signed-in user.
func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	out, err := gateway.Get[models.User](ctx, s.client, MePath)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
