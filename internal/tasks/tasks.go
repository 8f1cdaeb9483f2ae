package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/shared"
)

// BandSource fetches the pieces of a band export.
type BandSource interface {
	Band(ctx context.Context, id string) (*models.Band, error)
	Events(ctx context.Context, bandID string) ([]models.Event, error)
	Songs(ctx context.Context, bandID string) ([]models.Song, error)
	Lyrics(ctx context.Context, songID string) (*models.Lyrics, error)
}

// APIClient defines the interface for making raw API requests.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// RunRecorder persists a summary of each finished export.
//
// Satisfied by repositories.ExportRunRepository.
type RunRecorder interface {
	Create(run *models.ExportRun) error
}

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Data     any
	Error    error
}

// SnapshotResult contains the data fetched by [Exporter.Snapshot].
type SnapshotResult struct {
	Profile any              // Current user
	Bands   any              // Bands the user belongs to
	Feed    any              // First page of the feed
	Errors  []EndpointResult // Failed endpoint fetches
}

// SnapshotData is the JSON shape of a [SnapshotResult].
type SnapshotData struct {
	Profile any              `json:"profile,omitempty"`
	Bands   any              `json:"bands,omitempty"`
	Feed    any              `json:"feed,omitempty"`
	Errors  []map[string]any `json:"errors,omitempty"`
}

// Data converts the result to its JSON shape.
func (r *SnapshotResult) Data() SnapshotData {
	d := SnapshotData{Profile: r.Profile, Bands: r.Bands, Feed: r.Feed}
	for _, e := range r.Errors {
		d.Errors = append(d.Errors, map[string]any{"endpoint": e.Endpoint, "error": e.Error.Error()})
	}
	return d
}

type snapshotOperation struct {
	name    string
	path    string
	target  *any
	phase   Phase
	message string
}

// Exporter runs bulk exports and snapshots against the band API.
type Exporter struct {
	source BandSource
	api    APIClient
	runs   RunRecorder
	logger *log.Logger
}

// NewExporter creates an Exporter. api and runs may be nil; Snapshot then
// fails and runs go unrecorded.
func NewExporter(source BandSource, api APIClient, runs RunRecorder, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{
		source: source,
		api:    api,
		runs:   runs,
		logger: shared.WithLogger(logger, "component", "export"),
	}
}

// ServiceSource adapts the typed services to a [BandSource].
func ServiceSource(svc *services.Services) BandSource {
	return &serviceSource{svc: svc}
}

type serviceSource struct {
	svc *services.Services
}

func (s *serviceSource) Band(ctx context.Context, id string) (*models.Band, error) {
	return s.svc.Bands.Get(ctx, id)
}

func (s *serviceSource) Events(ctx context.Context, bandID string) ([]models.Event, error) {
	return s.svc.Events.List(ctx, bandID)
}

func (s *serviceSource) Songs(ctx context.Context, bandID string) ([]models.Song, error) {
	return s.svc.Songs.List(ctx, bandID)
}

func (s *serviceSource) Lyrics(ctx context.Context, songID string) (*models.Lyrics, error) {
	return s.svc.Songs.Lyrics(ctx, songID)
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

// Snapshot fetches the user's profile, bands and feed.
//
// A failing endpoint is recorded in the result and does not stop the others.
// Only a cancelled context or a missing client returns an error.
func (e *Exporter) Snapshot(ctx context.Context, progress chan<- ProgressUpdate) (*SnapshotResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &SnapshotResult{Errors: []EndpointResult{}}
	endpoints := []snapshotOperation{
		{name: "profile", path: services.MePath, target: &result.Profile, phase: FetchProfile, message: "Fetching profile..."},
		{name: "bands", path: "/bands", target: &result.Bands, phase: FetchBands, message: "Fetching bands..."},
		{name: "feed", path: "/posts?page=1", target: &result.Feed, phase: FetchFeed, message: "Fetching feed..."},
	}

	for i, op := range endpoints {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, snapshotUpdate(op, i+1, len(endpoints)))

		resp, err := e.api.Get(ctx, op.path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: op.path, Error: err})
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: op.path,
				Error:    fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode),
			})
		default:
			*op.target = resp.JSONData
		}
	}

	if n := len(result.Errors); n > 0 {
		e.logger.Warn("snapshot incomplete", "failed", n)
	}
	return result, nil
}
