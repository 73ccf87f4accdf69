package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file when missing, prepares the state directories and runs
// the database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			r.config = config
		}
	}

	paths := r.config.Paths
	dirs := map[string]bool{paths.TokensDir: true}
	for _, file := range []string{
		paths.Channels, paths.Playlists, paths.AddOn, paths.Stats, paths.Archive,
		paths.Ledger, paths.HistoryLog, paths.LastExeLog,
	} {
		if file != "" {
			dirs[filepath.Dir(file)] = true
		}
	}
	for dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenRunDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Configuration: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Place the OAuth client secrets at %s\n", paths.OAuthClient)
	r.writePlain("2. Fill %s and %s\n", paths.Channels, paths.Playlists)
	r.writePlain("3. Run 'ytcurate auth login'\n")
	return nil
}
