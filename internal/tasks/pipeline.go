package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// RunOptions tunes one pipeline execution.
type RunOptions struct {
	Window     Window
	SkipLedger bool
	RadarLimit int
}

// Summary collects the results of a pipeline run.
type Summary struct {
	RunID       string                     `json:"run_id"`
	Replay      *ReplayResult              `json:"replay,omitempty"`
	Discovered  int                        `json:"discovered"`
	Routed      map[models.Destination]int `json:"routed,omitempty"`
	Updates     []*UpdateResult            `json:"updates,omitempty"`
	StatsFilled int                        `json:"stats_filled"`
	NewRows     int                        `json:"new_rows"`
	Radar       *RadarResult               `json:"radar,omitempty"`
}

// Added counts successful insertions across the run.
func (s *Summary) Added() int {
	n := 0
	if s.Replay != nil {
		n += s.Replay.Replayed
	}
	for _, u := range s.Updates {
		n += u.Added
	}
	if s.Radar != nil {
		n += s.Radar.Added()
	}
	return n
}

// Removed counts evicted items.
func (s *Summary) Removed() int {
	n := 0
	for _, u := range s.Updates {
		n += u.Evicted
	}
	return n
}

// Failed counts insertions that ended up in the ledger.
func (s *Summary) Failed() int {
	n := 0
	if s.Replay != nil {
		n += s.Replay.Failed
	}
	for _, u := range s.Updates {
		n += u.Failed
	}
	if s.Radar != nil {
		n += s.Radar.Failed
	}
	return n
}

// additionOrder is the priority in which destinations are filled.
var additionOrder = []models.Destination{
	models.DestBanger,
	models.DestRelease,
	models.DestWatchLater,
	models.DestShorts,
}

// Run executes the whole pipeline:
//
//  1. replay the failure ledger
//  2. discover uploads inside the window
//  3. capture week-offset statistics and record the new videos
//  4. classify new videos and update banger, release, watch later and shorts in that order
//  5. maintain the livestream playlist when it is configured for eviction
//  6. refill the release radar
//
// When discovery finds nothing, only the statistics step runs after it.
func (c *Curator) Run(ctx context.Context, rc *RunContext, opts RunOptions) (*Summary, error) {
	summary := &Summary{RunID: rc.RunID, Routed: map[models.Destination]int{}}

	if !opts.SkipLedger {
		replay, err := c.ReplayLedger(ctx, rc)
		if err != nil {
			return summary, err
		}
		summary.Replay = replay
	}

	channels := c.Channels()
	rc.Logger.Info("iterative research", "channels", len(channels))
	items, err := c.Discover(ctx, rc, channels, opts.Window)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(items)

	rows, err := c.loadStats()
	if err != nil {
		return summary, err
	}

	if len(items) == 0 {
		rc.Logger.Info("no addition to perform")
		if summary.StatsFilled, err = c.AllWeeklyStats(ctx, rc, rows); err != nil {
			return summary, err
		}
		return summary, c.saveStats(rows)
	}

	rc.Logger.Info("add statistics", "videos", len(items))
	videos, err := c.EnrichItems(ctx, rc, items)
	if err != nil {
		return summary, err
	}

	if summary.StatsFilled, err = c.AllWeeklyStats(ctx, rc, rows); err != nil {
		return summary, err
	}
	rows, summary.NewRows = AppendStatsRows(rows, videos)
	if err := c.saveStats(rows); err != nil {
		return summary, err
	}

	routes := c.classifier.Route(videos)
	for dest, vs := range routes {
		summary.Routed[dest] = len(vs)
	}

	for _, dest := range additionOrder {
		candidates := routes[dest]
		role := string(dest)
		if len(candidates) == 0 && !c.rules.Evicts(role) {
			continue
		}

		ref, ok := c.playlists.Lookup(role)
		if !ok {
			if len(candidates) > 0 && dest != models.DestShorts {
				rc.Logger.Warn("no playlist bound to role", "role", role, "videos", len(candidates))
			}
			continue
		}

		update, err := c.UpdatePlaylist(ctx, rc, ref, candidates, UpdateOptions{
			Evict:       c.rules.Evicts(role),
			MinDuration: c.minDuration(dest),
			EvictAfter:  c.rules.EvictAfter(),
		})
		if update != nil {
			summary.Updates = append(summary.Updates, update)
		}
		if err != nil {
			return summary, err
		}
	}

	if ref, ok := c.playlists.Lookup(models.RoleLivestream); ok && c.rules.Evicts(models.RoleLivestream) {
		update, err := c.UpdatePlaylist(ctx, rc, ref, nil, UpdateOptions{Live: true, Evict: true})
		if update != nil {
			summary.Updates = append(summary.Updates, update)
		}
		if err != nil {
			return summary, err
		}
	}

	limit := opts.RadarLimit
	if limit <= 0 {
		limit = c.rules.RadarLimit
	}
	if summary.Radar, err = c.FillRadar(ctx, rc, limit); err != nil {
		return summary, err
	}
	return summary, nil
}

// minDuration is the configured minimum, except for shorts which are short by definition.
func (c *Curator) minDuration(dest models.Destination) time.Duration {
	if dest == models.DestShorts {
		return 0
	}
	return c.rules.MinDuration()
}

func (c *Curator) loadStats() ([]models.HistoricalStatsRow, error) {
	if c.stats == nil {
		return nil, nil
	}
	rows, err := c.stats.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: load statistics: %w", shared.ErrStateFile, err)
	}
	return rows, nil
}

func (c *Curator) saveStats(rows []models.HistoricalStatsRow) error {
	if c.stats == nil {
		return nil
	}
	return c.stats.Save(rows)
}
