// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	modeLocal  = "local"
	modeRemote = "remote"
)

// app is the root command. Global flags are inherited by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "ytcurate",
		Usage:   "Curate YouTube playlists from channel subscriptions",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

// loadConfig reads the configuration file when it exists and keeps the current config otherwise.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

func modeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "mode",
		Aliases: []string{"m"},
		Usage:   "Credential mode: local (token file and browser consent) or remote (environment and repository secret)",
		Value:   modeLocal,
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, csv, markdown or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the export to a file instead of stdout",
		},
	}
}

func validateMode(mode string) error {
	switch mode {
	case modeLocal, modeRemote:
		return nil
	default:
		return fmt.Errorf("%w: mode must be %q or %q, got %q", shared.ErrInvalidArgument, modeLocal, modeRemote, mode)
	}
}

// setupCommand creates the configuration file, state directories and run database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml, state directories and the run history database",
		Action: r.Setup,
	}
}

// authCommand manages the YouTube OAuth2 credentials.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "YouTube OAuth2 credentials",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize the account in a browser and save the token",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the state of the saved token",
				Flags: []cli.Flag{
					modeFlag(),
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Refresh the access token when it has expired",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "encode",
				Usage: "Write base64 copies of key files for use as repository secrets",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "file",
						Usage: "Key file under the tokens directory (defaults to the token and the OAuth client)",
					},
				},
				Action: r.AuthEncode,
			},
		},
	}
}

// runCommand executes the whole curation pipeline.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Discover uploads, update playlists, track statistics and refill the release radar",
		Flags: []cli.Flag{
			modeFlag(),
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "Discover uploads from the last N days instead of since the last run",
			},
			&cli.BoolFlag{
				Name:  "no-ledger",
				Usage: "Skip replaying the failure ledger",
			},
			&cli.IntFlag{
				Name:  "radar-limit",
				Usage: "Override the release radar size",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow progress in an interactive view",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the run summary as JSON",
			},
			&cli.StringFlag{
				Name:    "report",
				Usage:   "Write a markdown summary of the run to this file",
				Sources: cli.EnvVars("GITHUB_STEP_SUMMARY"),
			},
		},
		Action: r.Run,
	}
}

// statsCommand maintains the historical statistics table.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Historical statistics",
		Commands: []*cli.Command{
			{
				Name:   "update",
				Usage:  "Capture every week-offset snapshot that is due",
				Flags:  []cli.Flag{modeFlag()},
				Action: r.StatsUpdate,
			},
		},
	}
}

// radarCommand refills the release radar on its own.
func radarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "radar",
		Usage: "Release radar",
		Commands: []*cli.Command{
			{
				Name:  "fill",
				Usage: "Top the release playlist up from the re-listening and legacy queues",
				Flags: []cli.Flag{
					modeFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Target size (defaults to rules.radar_limit)",
					},
				},
				Action: r.RadarFill,
			},
		},
	}
}

// ledgerCommand inspects and replays pending insertions.
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Failure ledger",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "List insertions waiting for replay",
				Flags:  formatFlags(),
				Action: r.LedgerShow,
			},
			{
				Name:   "replay",
				Usage:  "Retry every pending insertion now",
				Flags:  []cli.Flag{modeFlag()},
				Action: r.LedgerReplay,
			},
		},
	}
}

// channelsCommand maintains the channel groups file.
func channelsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "Channel groups",
		Commands: []*cli.Command{
			{
				Name:  "sort",
				Usage: "Order each category by channel title",
				Flags: []cli.Flag{
					modeFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the sorted groups without saving them",
					},
				},
				Action: r.ChannelsSort,
			},
		},
	}
}

// historyCommand reads the run history database.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: append(formatFlags(), &cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Usage:   "Maximum number of runs (0 for all)",
					Value:   20,
				}),
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run with its ledger events",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
		},
	}
}
