package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// APIRequest sends the subcommand's method to the given path through the
// gateway, so the stored session and retry policy apply.
func (r *Runner) APIRequest(ctx context.Context, cmd *cli.Command) error {
	method := strings.ToUpper(cmd.Name)
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	data, err := requestBody(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	r.logger.Info("API request", "method", method, "path", path)

	resp, err := r.svc.API.Do(ctx, method, path, data)
	if resp != nil && len(resp.Body) > 0 {
		if resp.IsJSON {
			if werr := r.writeJSON(resp.JSONData, cmd.Bool("pretty")); werr != nil {
				return werr
			}
		} else {
			r.output.Write(resp.Body)
			r.output.Write([]byte("\n"))
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	r.logger.Debug("API response", "status", resp.StatusCode, "bytes", len(resp.Body))
	return nil
}

// requestBody reads --data or --data-file and checks it is JSON.
func requestBody(cmd *cli.Command) ([]byte, error) {
	inline, file := cmd.String("data"), cmd.String("data-file")
	if inline != "" && file != "" {
		return nil, fmt.Errorf("%w: cannot specify both --data and --data-file", shared.ErrInvalidArgument)
	}

	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		data = b
	default:
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}
	return data, nil
}

// Dump fetches profile, bands and feed and prints them as one document.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	r.logger.Info("dumping API state")
	progress := make(chan tasks.ProgressUpdate, 10)
	wait := r.follow(progress)

	result, err := r.exporter().Snapshot(ctx, progress)
	close(progress)
	wait()
	if err != nil {
		return err
	}

	dump := result.Data()
	if n := len(result.Errors); n > 0 {
		r.writePlain("\n%s Dump finished with %d failed endpoint(s)\n\n", r.paint.Warn("!"), n)
	} else {
		r.writePlain("\n%s Dump complete\n\n", r.paint.OK("✓"))
	}

	if saveFile := cmd.String("save"); saveFile != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("%s Dump saved to %s\n\n", r.paint.OK("✓"), saveFile)
		}
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}
