package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/setlist/internal/formatter"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk band exports.
type BulkExportOpts struct {
	Format        string  // Export format: json, csv, markdown, txt
	OutputDir     string  // Base output directory (default: setlist_export_{epoch})
	NumWorkers    int     // Concurrent workers (default: 5, max: 10)
	RateLimit     float64 // Bands started per second (default: 5)
	IncludeLyrics bool    // Fetch lyric sheets for markdown exports
}

func (o BulkExportOpts) normalize() (BulkExportOpts, error) {
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "", "json":
		o.Format = "json"
	case "md", "markdown":
		o.Format = "markdown"
	case "text", "txt":
		o.Format = "txt"
	default:
		o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	}
	if !slices.Contains(formatter.Formats, o.Format) {
		return o, fmt.Errorf("%w: format %q (want one of %s)",
			shared.ErrInvalidArgument, o.Format, strings.Join(formatter.Formats, ", "))
	}

	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("setlist_export_%d", time.Now().Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	if o.NumWorkers > maxWorkers {
		o.NumWorkers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o, nil
}

// BulkExport exports multiple bands concurrently with rate limiting and progress tracking.
//
// A rate limited producer feeds band IDs to a bounded worker pool. Each worker
// fetches the band, its events and songs, then writes them in opts.Format.
// Failed bands are reported in the result and do not stop the run. A
// cancelled context ends the run early; bands that never started are marked
// failed. The manifest is written in every case.
func (e *Exporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	bandIDs []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: band source not initialized", shared.ErrServiceUnavailable)
	}

	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(bandIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one band id", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		TotalBands:      len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.BandExportResult, 0, len(ids)),
		StartedAt:       time.Now().UTC(),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string, len(ids))
	results := make(chan formatter.BandExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		e.sendProgress(prog, startingExportUpdate(len(ids)))
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, fetchBandUpdate(i+1, len(ids), id))
			jobs <- id
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	seen := make(map[string]bool, len(ids))
	completed := 0
	for res := range results {
		completed++
		seen[res.BandID] = true
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.BandName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.BandName, res.Error))
		}
	}

	for _, id := range ids {
		if seen[id] {
			continue
		}
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.Canceled
		}
		result.FailedExports++
		result.Results = append(result.Results, formatter.BandExportResult{
			BandID:   id,
			BandName: unknownBand(id),
			Error:    fmt.Errorf("export not started: %w", cause),
		})
	}
	result.FinishedAt = time.Now().UTC()

	e.logger.Info("bulk export finished",
		"format", opts.Format,
		"succeeded", result.SuccessfulExports,
		"failed", result.FailedExports,
		"dir", opts.OutputDir)
	e.recordRun(result, opts.Format)

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports bands from the jobs channel.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- formatter.BandExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for id := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportBand(ctx, id, opts)
	}
}

// exportBand fetches and writes a single band.
func (e *Exporter) exportBand(ctx context.Context, id string, opts BulkExportOpts) formatter.BandExportResult {
	result := formatter.BandExportResult{
		BandID:   id,
		BandName: unknownBand(id),
		Files:    []string{},
	}

	export, err := e.fetchBand(ctx, id)
	if err != nil {
		result.Error = err
		return result
	}
	result.BandName = export.Band.Name

	var lyrics map[string]*models.Lyrics
	if opts.IncludeLyrics && opts.Format == "markdown" {
		lyrics = e.fetchLyrics(ctx, export.Songs)
	}

	files, err := formatter.Write(opts.Format, export, opts.OutputDir, lyrics)
	if err != nil {
		result.Error = err
		return result
	}
	result.Files = files
	result.Success = true
	return result
}

func (e *Exporter) fetchBand(ctx context.Context, id string) (*models.BandExport, error) {
	band, err := e.source.Band(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch band: %w", err)
	}
	events, err := e.source.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	songs, err := e.source.Songs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch songs: %w", err)
	}
	if band.ID == "" {
		band.ID = id
	}
	return &models.BandExport{
		Band:       *band,
		Events:     events,
		Songs:      songs,
		ExportedAt: time.Now().UTC(),
	}, nil
}

// fetchLyrics collects lyric sheets for songs. Songs without lyrics are skipped.
func (e *Exporter) fetchLyrics(ctx context.Context, songs []models.Song) map[string]*models.Lyrics {
	out := make(map[string]*models.Lyrics, len(songs))
	for _, song := range songs {
		if ctx.Err() != nil {
			break
		}
		l, err := e.source.Lyrics(ctx, song.ID)
		if err != nil {
			e.logger.Debug("no lyrics", "song", song.ID, "err", err)
			continue
		}
		out[song.ID] = l
	}
	return out
}

func (e *Exporter) recordRun(result *formatter.BulkExportResult, format string) {
	if e.runs == nil {
		return
	}
	run := models.NewExportRun(result.OutputDirectory, format,
		result.TotalBands, result.SuccessfulExports, result.FailedExports)
	if err := e.runs.Create(run); err != nil {
		e.logger.Warn("failed to record export run", "err", err)
	}
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func unknownBand(id string) string {
	return fmt.Sprintf("Unknown (%s)", id)
}
