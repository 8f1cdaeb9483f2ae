package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/setlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes the selected bands to disk in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:        cmd.String("format"),
		OutputDir:     cmd.String("output"),
		NumWorkers:    cmd.Int("workers"),
		RateLimit:     cmd.Float("rate"),
		IncludeLyrics: cmd.Bool("lyrics"),
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	wait := r.follow(progress)

	result, err := r.exporter().BulkExport(ctx, progress, cmd.StringSlice("band"), opts)
	close(progress)
	wait()
	if err != nil {
		return err
	}

	r.writePlainln("%s", r.paint.Title("Export summary"))
	r.writePlain("Bands:     %d\n", result.TotalBands)
	r.writePlain("Succeeded: %s\n", r.paint.OK(fmt.Sprint(result.SuccessfulExports)))
	if result.FailedExports > 0 {
		r.writePlain("Failed:    %s\n", r.paint.Err(fmt.Sprint(result.FailedExports)))
	}
	r.writePlain("Output:    %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if result.SuccessfulExports == 0 {
		return fmt.Errorf("no bands exported")
	}
	return nil
}

// follow prints progress messages until the channel is closed. The
// returned func blocks until the last message is written.
func (r *Runner) follow(progress <-chan tasks.ProgressUpdate) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Message == "" {
				continue
			}
			r.logger.Debug("progress", "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
			r.writePlain("%s\n", update.Message)
		}
	}()
	return func() { <-done }
}
