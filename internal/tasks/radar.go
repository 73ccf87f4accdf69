package tasks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// RadarResult reports what a refill did.
type RadarResult struct {
	Needed       int    `json:"needed"`
	FromRelisten int    `json:"from_relisten"`
	FromLegacy   int    `json:"from_legacy"`
	Failed       int    `json:"failed"`
	Skipped      string `json:"skipped,omitempty"`
}

// Added is the number of items pulled into the radar.
func (r *RadarResult) Added() int {
	return r.FromRelisten + r.FromLegacy - r.Failed
}

// RadarSplit divides a deficit of n items between the re-listening and legacy queues.
//
// The desired split is ceil(n/2) and floor(n/2). A queue short of its share hands the whole
// shortfall to the other queue in a single pass.
func RadarSplit(n, relistenAvailable, legacyAvailable int) (rel, leg int) {
	wantRel, wantLeg := (n+1)/2, n/2

	rel = min(wantRel, relistenAvailable)
	leg = min(wantLeg, legacyAvailable)

	if leg < wantLeg {
		rel = min(n-leg, relistenAvailable)
	}
	if rel < wantRel {
		leg = min(n-rel, legacyAvailable)
	}
	return rel, leg
}

// FillRadar tops the release playlist up to limit items from the re-listening and legacy queues.
//
// Re-listening items must have been queued for at least the configured minimum age. Pulled items
// are added to the release playlist then removed from their queue. A quota error skips the refill.
func (c *Curator) FillRadar(ctx context.Context, rc *RunContext, limit int) (*RadarResult, error) {
	result := &RadarResult{}

	target, ok := c.playlists.Lookup(models.RoleRelease)
	relisten, okRel := c.playlists.Lookup(models.RoleReListening)
	legacy, okLeg := c.playlists.Lookup(models.RoleLegacy)
	if !ok || !okRel || !okLeg {
		result.Skipped = "release, re_listening and legacy playlists are required"
		rc.Logger.Warn("release radar refill skipped", "reason", result.Skipped)
		return result, nil
	}

	rc.sendProgress(fillRadarUpdate(1, 3, "Checking Release Radar capacity..."))
	current, err := c.api.PlaylistItems(ctx, target.ID)
	if err != nil {
		if services.StatusCode(err) == http.StatusForbidden || services.OutcomeOf(err) == services.QuotaExceeded {
			result.Skipped = "api quota exceeded"
			rc.Logger.Info("API quota exceeded, release radar refill skipped")
		} else {
			result.Skipped = "capacity check failed"
			rc.Logger.Warn("unknown error, release radar refill skipped", "err", err)
		}
		return result, nil
	}

	n := limit - len(current)
	if n <= 0 {
		rc.Logger.Info("no addition necessary for release radar", "items", len(current), "limit", limit)
		return result, nil
	}
	result.Needed = n

	rc.sendProgress(fillRadarUpdate(2, 3, "Reading re-listening and legacy queues..."))
	relistenItems, err := c.queue(ctx, relisten.ID, limit)
	if err != nil {
		return c.radarQueueError(rc, result, err)
	}
	legacyItems, err := c.queue(ctx, legacy.ID, limit)
	if err != nil {
		return c.radarQueueError(rc, result, err)
	}

	cutoff := rc.Now.Add(-c.rules.RelistenMinAge())
	var eligible []models.PlaylistItem
	for _, item := range relistenItems {
		if item.AddedAt.Before(cutoff) {
			eligible = append(eligible, item)
		}
	}

	rel, leg := RadarSplit(n, len(eligible), len(legacyItems))
	rc.sendProgress(fillRadarUpdate(3, 3, fmt.Sprintf("Pulling %d + %d item(s) into Release Radar...", rel, leg)))

	pulls := []struct {
		name  string
		items []models.PlaylistItem
		count *int
	}{
		{name: "re-listening", items: eligible[:rel], count: &result.FromRelisten},
		{name: "legacy", items: legacyItems[:leg], count: &result.FromLegacy},
	}

	for _, pull := range pulls {
		if len(pull.items) == 0 {
			continue
		}
		rc.Logger.Info("release radar addition", "source", pull.name, "videos", len(pull.items))

		ids := make([]string, len(pull.items))
		for i, item := range pull.items {
			ids[i] = item.VideoID
		}

		_, failed, err := c.addVideos(ctx, rc, target, ids)
		*pull.count = len(pull.items)
		result.Failed += failed
		if err != nil {
			return result, err
		}
		c.deleteItems(ctx, rc, pull.items)
	}

	return result, nil
}

// queue reads the first limit items of a source queue.
func (c *Curator) queue(ctx context.Context, playlistID string, limit int) ([]models.PlaylistItem, error) {
	items, err := c.api.PlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *Curator) radarQueueError(rc *RunContext, result *RadarResult, err error) (*RadarResult, error) {
	if services.OutcomeOf(err) == services.QuotaExceeded {
		result.Skipped = "api quota exceeded"
		rc.Logger.Info("API quota exceeded, release radar refill skipped")
		return result, nil
	}
	return nil, fmt.Errorf("%w: release radar: %w", shared.ErrAPIRequest, err)
}
