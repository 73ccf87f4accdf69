package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcurate/internal/formatter"
	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/repositories"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/desertthunder/ytcurate/internal/tasks"
	"github.com/desertthunder/ytcurate/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run executes the curation pipeline once.
//
// Log lines go to stderr and the history log, tagged with the run id. Afterwards the section of
// the history log belonging to this run is copied to the last-execution log, and the run is
// recorded in the history database.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.String("mode")
	if err := validateMode(mode); err != nil {
		return err
	}
	useTUI := cmd.Bool("tui")
	paths := r.config.Paths

	history, err := shared.OpenHistoryLog(paths.HistoryLog)
	if err != nil {
		return err
	}
	defer history.Close()

	var logOut io.Writer = io.MultiWriter(r.logOutput, history)
	if useTUI {
		logOut = history
	}
	runID := shared.GenerateID()
	base := shared.NewLogger(logOut)
	shared.SetLogLevel(base, r.logger.GetLevel())
	logger := shared.WithLogger(base, "run", runID)

	rc := tasks.NewRunContext(r.now(), runID, logger)
	logger.Info(shared.StartMarker, "mode", mode)

	db, err := shared.OpenRunDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	runs := repositories.NewRunRepository(db)

	rc.LastRun = r.lastRun(runs, logger)

	run := &models.Run{ID: runID, Mode: mode, StartedAt: rc.Now}
	if err := runs.Start(run); err != nil {
		return err
	}

	summary, runErr := r.execute(ctx, cmd, rc, runs, mode, useTUI)

	finished := r.now()
	run.FinishedAt = &finished
	run.Status = models.RunSucceeded
	if summary != nil {
		run.Added, run.Removed, run.Failed = summary.Added(), summary.Removed(), summary.Failed()
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
		logger.Error("run failed", "error", runErr)
	}
	if err := runs.Finish(run); err != nil {
		logger.Warn("failed to record run", "error", err)
	}

	logger.Info("process ended", "added", run.Added, "removed", run.Removed, "failed", run.Failed)
	if err := shared.CopyLastExecution(paths.HistoryLog, paths.LastExeLog, runID); err != nil {
		logger.Warn("failed to copy last execution log", "error", err)
	}

	if summary != nil {
		if report := cmd.String("report"); report != "" {
			if err := formatter.WriteExport(report, formatter.SummaryToMarkdown(summary)); err != nil {
				logger.Warn("failed to write run report", "path", report, "error", err)
			}
		}
		if cmd.Bool("json") {
			if err := r.writeJSON(summary, true); err != nil {
				return err
			}
		} else if err := r.writePlain("%s", ui.RenderSummary(summary)); err != nil {
			return err
		}
	}
	return runErr
}

// execute opens the session, runs the pipeline and persists the credentials it used.
func (r *Runner) execute(ctx context.Context, cmd *cli.Command, rc *tasks.RunContext, runs *repositories.RunRepository, mode string, useTUI bool) (*tasks.Summary, error) {
	days := int(cmd.Int("days"))
	if days == 0 && rc.LastRun == nil {
		days = r.config.Rules.DiscoveryDays
	}
	opts := tasks.RunOptions{
		Window:     tasks.DiscoveryWindow(rc, days),
		SkipLedger: cmd.Bool("no-ledger"),
		RadarLimit: int(cmd.Int("radar-limit")),
	}
	if !opts.Window.Bounded() {
		return nil, fmt.Errorf("%w: no previous run found, pass --days or set rules.discovery_days", shared.ErrInvalidArgument)
	}
	rc.Logger.Debug("discovery window", "since", opts.Window.Since, "until", opts.Window.Until)

	s, err := r.openSession(ctx, mode)
	if err != nil {
		return nil, err
	}

	curator, err := r.newCurator(s.api, runs)
	if err != nil {
		return nil, err
	}

	var summary *tasks.Summary
	var runErr error
	if useTUI {
		summary, runErr = r.runInteractive(ctx, curator, rc, opts)
	} else {
		summary, runErr = curator.Run(ctx, rc, opts)
	}

	if err := r.persistCredentials(ctx, s); err != nil {
		rc.Logger.Error("failed to persist credentials", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return summary, runErr
}

// runInteractive drives the pipeline from the progress view.
func (r *Runner) runInteractive(ctx context.Context, curator *tasks.Curator, rc *tasks.RunContext, opts tasks.RunOptions) (*tasks.Summary, error) {
	model := ui.NewModel(ctx, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error) {
		rc.Progress = progress
		return curator.Run(ctx, rc, opts)
	})

	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	model.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to run progress view: %w", err)
	}
	if model.Summary() == nil && model.Err() == nil {
		return nil, context.Canceled
	}
	return model.Summary(), model.Err()
}

// lastRun is the start of the previous successful run, read from the database first and the
// last-execution log second.
func (r *Runner) lastRun(runs *repositories.RunRepository, logger *log.Logger) *time.Time {
	last, err := runs.LastSuccessful()
	if err != nil {
		logger.Warn("failed to read run history", "error", err)
	}
	if last != nil {
		return &last.StartedAt
	}

	t, err := shared.LastExecution(r.config.Paths.LastExeLog)
	if err != nil {
		logger.Debug("no previous execution found", "error", err)
		return nil
	}
	return &t
}
