package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// Window bounds discovery by release date. Both bounds are exclusive; a zero bound is open.
type Window struct {
	Since time.Time
	Until time.Time
}

// SinceLastRun keeps videos released between the previous run and now, both rounded down to the hour.
func SinceLastRun(last, now time.Time) Window {
	return Window{Since: last.Truncate(time.Hour), Until: now.Truncate(time.Hour)}
}

// LastDays keeps videos released during the days before now, rounded down to the hour.
func LastDays(days int, now time.Time) Window {
	until := now.Truncate(time.Hour)
	return Window{Since: until.AddDate(0, 0, -days), Until: until}
}

// DiscoveryWindow picks the window for a run: an explicit day count wins, then the last run, then none.
func DiscoveryWindow(rc *RunContext, days int) Window {
	switch {
	case days > 0:
		return LastDays(days, rc.Now)
	case rc.LastRun != nil:
		return SinceLastRun(*rc.LastRun, rc.Now)
	default:
		return Window{}
	}
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.Since.IsZero()
}

// Contains reports whether t falls strictly inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && !t.After(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// Discover lists the uploads of every channel that fall inside w.
//
// Channels in the skip list are ignored. A missing uploads playlist yields nothing, with a warning
// unless the channel is known to have none. Any other API error aborts discovery.
func (c *Curator) Discover(ctx context.Context, rc *RunContext, channelIDs []string, w Window) ([]models.PlaylistItem, error) {
	var found []models.PlaylistItem

	for i, channelID := range channelIDs {
		rc.sendProgress(discoverUpdate(i+1, len(channelIDs), channelID))
		if c.addOn.Skips(channelID) {
			continue
		}

		items, err := c.uploads(ctx, models.UploadsPlaylistID(channelID), w)
		switch services.OutcomeOf(err) {
		case services.OK:
			found = append(found, items...)
		case services.NotFound:
			if !c.addOn.ExpectsMissing(channelID) {
				rc.Logger.Warn("playlist not found", "playlist", models.UploadsPlaylistID(channelID))
			}
		default:
			return nil, fmt.Errorf("%w: discovery aborted at %s: %w", shared.ErrAPIRequest, channelID, err)
		}
	}

	return found, nil
}

// uploads pages through an uploads playlist, newest first, until a page reaches past the window.
func (c *Curator) uploads(ctx context.Context, playlistID string, w Window) ([]models.PlaylistItem, error) {
	var kept []models.PlaylistItem
	err := c.api.PlaylistPages(ctx, playlistID, func(items []models.PlaylistItem) bool {
		more := true
		for _, item := range items {
			if w.Contains(item.ReleaseDate) {
				kept = append(kept, item)
			}
			if w.Bounded() && !item.ReleaseDate.After(w.Since) {
				more = false
			}
		}
		return more
	})
	return kept, err
}
