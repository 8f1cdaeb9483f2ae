// package services wraps the band API endpoints in typed calls over the
// request gateway
package services

import (
	"context"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/session"
)

// Sessions is the part of the session manager the auth service drives.
type Sessions interface {
	Login(ctx context.Context, accessToken, refreshToken string) (*session.TokenPair, error)
	Logout(ctx context.Context) error
}

// Services bundles every API wrapper over one shared gateway client.
type Services struct {
	Auth   *AuthService
	Users  *UserService
	Bands  *BandService
	Events *EventService
	Songs  *SongService
	Feed   *FeedService
	API    *APIService
}

// New builds the full set of services.
func New(client *gateway.Client, sessions Sessions) *Services {
	return &Services{
		Auth:   NewAuthService(client, sessions),
		Users:  &UserService{client: client},
		Bands:  &BandService{client: client},
		Events: &EventService{client: client},
		Songs:  &SongService{client: client},
		Feed:   &FeedService{client: client},
		API:    NewAPIService(client),
	}
}
