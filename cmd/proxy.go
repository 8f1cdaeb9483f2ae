package main

import (
	"context"
	"errors"

	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/server"
	"github.com/urfave/cli/v3"
)

// Proxy serves the local auth proxy until interrupted.
func (r *Runner) Proxy(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	router := server.NewProxyRouter(server.ProxyOptions{
		Client:          r.client,
		Sessions:        r.sessions,
		Registry:        metrics.NewRegistry(),
		LoginURL:        r.config.API.LoginURL,
		UploadTransport: r.httpClient.Transport,
		Logger:          r.logger,
	})
	srv := server.NewServer(cfg, router, r.logger)

	r.writePlain("%s Proxying %s on http://%s\n", r.paint.OK("✓"), r.client.BaseURL(), srv.Addr())
	r.writePlain("%s\n", r.paint.Help("Press Ctrl+C to stop"))

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
