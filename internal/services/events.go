package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
)

type EventService struct {
	client *gateway.Client
}

// List returns a band's events, soonest first as the server orders them.
func (s *EventService) List(ctx context.Context, bandID string) ([]models.Event, error) {
	if err := requireID("band", bandID); err != nil {
		return nil, err
	}
	return gateway.Get[[]models.Event](ctx, s.client, gateway.Path("/bands/%s/events", bandID))
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	ev, err := gateway.Get[models.Event](ctx, s.client, gateway.Path("/events/%s", id))
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *EventService) Create(ctx context.Context, ev models.Event) (*models.Event, error) {
	if err := requireID("band", ev.BandID); err != nil {
		return nil, err
	}
	out, err := gateway.Post[models.Event](ctx, s.client, gateway.Path("/bands/%s/events", ev.BandID), ev)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EventService) Update(ctx context.Context, ev models.Event) (*models.Event, error) {
	if err := requireID("event", ev.ID); err != nil {
		return nil, err
	}
	out, err := gateway.Put[models.Event](ctx, s.client, gateway.Path("/events/%s", ev.ID), ev)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := requireID("event", id); err != nil {
		return err
	}
	_, err := s.client.Do(ctx, http.MethodDelete, gateway.Path("/events/%s", id), nil)
	return err
}
