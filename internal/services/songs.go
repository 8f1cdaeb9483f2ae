package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
)

type SongService struct {
	client *gateway.Client
}

func (s *SongService) List(ctx context.Context, bandID string) ([]models.Song, error) {
	if err := requireID("band", bandID); err != nil {
		return nil, err
	}
	return gateway.Get[[]models.Song](ctx, s.client, gateway.Path("/bands/%s/songs", bandID))
}

func (s *SongService) Get(ctx context.Context, id string) (*models.Song, error) {
	if err := requireID("song", id); err != nil {
		return nil, err
	}
	song, err := gateway.Get[models.Song](ctx, s.client, gateway.Path("/songs/%s", id))
	if err != nil {
		return nil, err
	}
	return &song, nil
}

func (s *SongService) Create(ctx context.Context, song models.Song) (*models.Song, error) {
	if err := requireID("band", song.BandID); err != nil {
		return nil, err
	}
	out, err := gateway.Post[models.Song](ctx, s.client, gateway.Path("/bands/%s/songs", song.BandID), song)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SongService) Update(ctx context.Context, song models.Song) (*models.Song, error) {
	if err := requireID("song", song.ID); err != nil {
		return nil, err
	}
	out, err := gateway.Put[models.Song](ctx, s.client, gateway.Path("/songs/%s", song.ID), song)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SongService) Delete(ctx context.Context, id string) error {
	if err := requireID("song", id); err != nil {
		return err
	}
	_, err := s.client.Do(ctx, http.MethodDelete, gateway.Path("/songs/%s", id), nil)
	return err
}

// Lyrics returns the lyric sheet with its chords.
func (s *SongService) Lyrics(ctx context.Context, id string) (*models.Lyrics, error) {
	if err := requireID("song", id); err != nil {
		return nil, err
	}
	lyrics, err := gateway.Get[models.Lyrics](ctx, s.client, gateway.Path("/songs/%s/lyrics", id))
	if err != nil {
		return nil, err
	}
	return &lyrics, nil
}

// SaveLyrics replaces the lyric sheet.
func (s *SongService) SaveLyrics(ctx context.Context, id string, lyrics models.Lyrics) (*models.Lyrics, error) {
	if err := requireID("song", id); err != nil {
		return nil, err
	}
	lyrics.SongID = id
	out, err := gateway.Put[models.Lyrics](ctx, s.client, gateway.Path("/songs/%s/lyrics", id), lyrics)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
