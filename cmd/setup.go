package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then
// creates and migrates the local database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(); err != nil {
			return err
		}
		r.config = config
		r.writePlain("%s Created %s\n", r.paint.OK("✓"), configPath)
	} else {
		r.writePlain("%s Using %s\n", r.paint.OK("✓"), configPath)
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	r.writePlain("%s Database ready at %s\n", r.paint.OK("✓"), r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point api.base_url in %s at your band API (now %s)\n", configPath, r.config.API.BaseURL)
	r.writePlain("2. Run 'setlist auth login --email you@example.com' to sign in\n")
	return nil
}
