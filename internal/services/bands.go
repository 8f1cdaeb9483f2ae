package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

type BandService struct {
	client *gateway.Client
}

func (s *BandService) List(ctx context.Context) ([]models.Band, error) {
	return gateway.Get[[]models.Band](ctx, s.client, "/bands")
}

func (s *BandService) Get(ctx context.Context, id string) (*models.Band, error) {
	if err := requireID("band", id); err != nil {
		return nil, err
	}
	band, err := gateway.Get[models.Band](ctx, s.client, gateway.Path("/bands/%s", id))
	if err != nil {
		return nil, err
	}
	return &band, nil
}

func (s *BandService) Create(ctx context.Context, band models.Band) (*models.Band, error) {
	out, err := gateway.Post[models.Band](ctx, s.client, "/bands", band)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BandService) Update(ctx context.Context, band models.Band) (*models.Band, error) {
	if err := requireID("band", band.ID); err != nil {
		return nil, err
	}
	out, err := gateway.Put[models.Band](ctx, s.client, gateway.Path("/bands/%s", band.ID), band)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BandService) Delete(ctx context.Context, id string) error {
	if err := requireID("band", id); err != nil {
		return err
	}
	_, err := s.client.Do(ctx, http.MethodDelete, gateway.Path("/bands/%s", id), nil)
	return err
}

// Members lists the band roster.
func (s *BandService) Members(ctx context.Context, id string) ([]models.BandMember, error) {
	if err := requireID("band", id); err != nil {
		return nil, err
	}
	return gateway.Get[[]models.BandMember](ctx, s.client, gateway.Path("/bands/%s/members", id))
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id", shared.ErrMissingArgument, kind)
	}
	return nil
}
