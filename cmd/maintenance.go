package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytcurate/internal/formatter"
	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/repositories"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/desertthunder/ytcurate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// withCurator opens a session in the command's mode, runs fn and persists the credentials.
func (r *Runner) withCurator(ctx context.Context, cmd *cli.Command, fn func(*tasks.Curator, *tasks.RunContext) error) error {
	s, err := r.openSession(ctx, cmd.String("mode"))
	if err != nil {
		return err
	}

	curator, err := r.newCurator(s.api, nil)
	if err != nil {
		return err
	}

	rc := tasks.NewRunContext(r.now(), shared.GenerateID(), r.logger)
	if err := fn(curator, rc); err != nil {
		return err
	}
	return r.persistCredentials(ctx, s)
}

// StatsUpdate captures every due week-offset snapshot without discovering new uploads.
func (r *Runner) StatsUpdate(ctx context.Context, cmd *cli.Command) error {
	return r.withCurator(ctx, cmd, func(c *tasks.Curator, rc *tasks.RunContext) error {
		store := repositories.NewStatsStore(r.config.Paths.Stats)
		rows, err := store.Load()
		if err != nil {
			return err
		}

		filled, err := c.AllWeeklyStats(ctx, rc, rows)
		if err != nil {
			return err
		}
		if err := store.Save(rows); err != nil {
			return err
		}

		return r.writePlain("✓ Captured %d statistics snapshot(s) across %d video(s)\n", filled, len(rows))
	})
}

// RadarFill tops the release playlist up outside of a full run.
func (r *Runner) RadarFill(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = r.config.Rules.RadarLimit
	}

	return r.withCurator(ctx, cmd, func(c *tasks.Curator, rc *tasks.RunContext) error {
		result, err := c.FillRadar(ctx, rc, limit)
		if err != nil {
			return err
		}

		if result.Skipped != "" {
			return r.writePlain("⚠ Release radar skipped: %s\n", result.Skipped)
		}
		return r.writePlain("✓ Release radar +%d (%d re-listening, %d legacy, %d ledgered)\n",
			result.Added(), result.FromRelisten, result.FromLegacy, result.Failed)
	})
}

// LedgerShow exports the pending insertions.
func (r *Runner) LedgerShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ledger, err := repositories.NewLedgerStore(r.config.Paths.Ledger).Load()
	if err != nil {
		return err
	}

	data, err := formatter.ExportLedger(ledger, format)
	if err != nil {
		return err
	}
	return r.export(cmd.String("output"), data)
}

// LedgerReplay retries the pending insertions now.
func (r *Runner) LedgerReplay(ctx context.Context, cmd *cli.Command) error {
	return r.withCurator(ctx, cmd, func(c *tasks.Curator, rc *tasks.RunContext) error {
		result, err := c.ReplayLedger(ctx, rc)
		if err != nil {
			return err
		}

		if result.Playlists == 0 {
			return r.writePlain("✓ Nothing to replay\n")
		}
		return r.writePlain("✓ Replayed %d insertion(s) across %d playlist(s), %d still pending\n",
			result.Replayed, result.Playlists, c.Ledger().Pending())
	})
}

// ChannelsSort orders each channel category by title.
func (r *Runner) ChannelsSort(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run")

	return r.withCurator(ctx, cmd, func(c *tasks.Curator, rc *tasks.RunContext) error {
		path := r.config.Paths.Channels
		groups, err := repositories.LoadChannelGroups(path)
		if err != nil {
			return err
		}

		sorted, err := c.SortChannels(ctx, rc, groups, r.config.Rules.SkipSortCategoryTag)
		if err != nil {
			return err
		}

		if dryRun {
			return r.writeJSON(sorted, true)
		}
		if err := repositories.SaveChannelGroups(path, sorted); err != nil {
			return err
		}
		return r.writePlain("✓ Sorted %d categories in %s\n", len(sorted), path)
	})
}

// HistoryList exports recent runs.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := shared.OpenRunDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	values := make([]models.Run, len(runs))
	for i, run := range runs {
		values[i] = *run
	}

	data, err := formatter.ExportRuns(values, format)
	if err != nil {
		return err
	}
	return r.export(cmd.String("output"), data)
}

// HistoryShow prints one run and the ledger activity it recorded.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	db, err := shared.OpenRunDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	run, err := repo.Get(id)
	if err != nil {
		return err
	}
	events, err := repo.LedgerEvents(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Run    *models.Run          `json:"run"`
			Events []models.LedgerEvent `json:"events"`
		}{run, events}, true)
	}

	if _, err := r.output.Write(formatter.RunsToText([]models.Run{*run})); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	r.writePlainln("Ledger events:")
	for _, e := range events {
		r.writePlain("  %s  %-8s  %s → %s\n", e.CreatedAt.Local().Format(shared.TimeFormat), e.Kind, e.VideoID, e.PlaylistID)
	}
	return nil
}

// export writes data to path, or to the output when path is empty.
func (r *Runner) export(path string, data []byte) error {
	if path == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := formatter.WriteExport(path, data); err != nil {
		return err
	}
	r.logger.Info("export written", "path", path, "bytes", len(data))
	return nil
}
