package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// UpdateOptions selects the eviction policy and candidate filters of a playlist update.
type UpdateOptions struct {
	Live        bool          // Livestream playlist: evict anything no longer live
	Evict       bool          // Evaluate current members for eviction
	MinDuration time.Duration // Non-live candidates shorter than this are dropped
	EvictAfter  time.Duration // Non-live members released before now minus this are evicted
}

// UpdateResult counts what an update did to one playlist.
type UpdateResult struct {
	Playlist      models.PlaylistRef `json:"playlist"`
	Added         int                `json:"added"`
	Failed        int                `json:"failed"`
	Skipped       int                `json:"skipped"`
	Evicted       int                `json:"evicted"`
	EvictFailures int                `json:"evict_failures"`
	Archived      int                `json:"archived"`
}

// UpdatePlaylist evicts stale members of a playlist and adds the candidates that qualify.
//
// Additions and evictions are independent: a failure in one does not undo the other.
func (c *Curator) UpdatePlaylist(ctx context.Context, rc *RunContext, ref models.PlaylistRef, candidates []models.Video, opts UpdateOptions) (*UpdateResult, error) {
	result := &UpdateResult{Playlist: ref}
	rc.sendProgress(updatePlaylistUpdate(1, 2, ref))

	current, err := c.api.PlaylistItems(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", shared.ErrAPIRequest, ref.ID, err)
	}

	if opts.Evict && len(current) > 0 {
		evict, err := c.evictions(ctx, rc, current, opts)
		if err != nil {
			return nil, err
		}
		if !opts.Live {
			archived, err := c.archiveEvicted(ctx, rc, evict)
			if err != nil {
				return nil, err
			}
			result.Archived = archived
		}
		result.Evicted, result.EvictFailures = c.deleteItems(ctx, rc, itemsOf(evict))
	}

	rc.sendProgress(updatePlaylistUpdate(2, 2, ref))
	toAdd := filterCandidates(candidates, current, opts)
	result.Skipped = len(candidates) - len(toAdd)

	if len(toAdd) > 0 {
		rc.Logger.Info("addition", "playlist", ref.Name, "videos", len(toAdd))
		added, failed, err := c.addVideos(ctx, rc, ref, toAdd)
		result.Added, result.Failed = added, failed
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

type eviction struct {
	item  models.PlaylistItem
	video models.Video
}

func itemsOf(evictions []eviction) []models.PlaylistItem {
	items := make([]models.PlaylistItem, len(evictions))
	for i, e := range evictions {
		items[i] = e.item
	}
	return items
}

// evictions selects the members to remove.
//
// Livestream playlists drop private or unspecified items and anything no longer live. Other
// playlists drop private items and items released before the eviction horizon.
func (c *Curator) evictions(ctx context.Context, rc *RunContext, current []models.PlaylistItem, opts UpdateOptions) ([]eviction, error) {
	ids := make([]string, len(current))
	for i, item := range current {
		ids[i] = item.VideoID
	}

	videos, err := c.Enrich(ctx, rc, ids)
	if err != nil {
		return nil, err
	}

	horizon := rc.Now.Add(-opts.EvictAfter)
	var out []eviction
	for i, item := range current {
		var evict bool
		if opts.Live {
			evict = item.Status == models.PrivacyPrivate ||
				item.Status == models.PrivacyUnspecified ||
				videos[i].LiveStatus != models.LiveActive
		} else {
			evict = item.Status == models.PrivacyPrivate || item.ReleaseDate.Before(horizon)
		}
		if evict {
			out = append(out, eviction{item: item, video: videos[i]})
		}
	}
	return out, nil
}

// archiveEvicted appends evicted members with a known channel to the archive, with subscriber counts.
func (c *Curator) archiveEvicted(ctx context.Context, rc *RunContext, evicted []eviction) (int, error) {
	if c.archive == nil {
		return 0, nil
	}

	var channelIDs []string
	for _, e := range evicted {
		if e.item.ChannelID != "" {
			channelIDs = append(channelIDs, e.item.ChannelID)
		}
	}
	if len(channelIDs) == 0 {
		return 0, nil
	}

	subs, err := c.subscribers(ctx, channelIDs)
	if err != nil {
		return 0, err
	}

	var rows []models.ArchivedVideo
	for _, e := range evicted {
		if e.item.ChannelID == "" {
			continue
		}
		rows = append(rows, models.ArchivedVideo{
			Item:        e.item,
			Video:       e.video,
			Subscribers: subs[e.item.ChannelID],
			EvictedAt:   rc.Now,
		})
	}

	if err := c.archive.Append(rows); err != nil {
		return 0, fmt.Errorf("archive evicted videos: %w", err)
	}
	return len(rows), nil
}

// filterCandidates drops candidates already in the playlist or repeated, and for non-live
// playlists those shorter than the minimum or still upcoming.
func filterCandidates(candidates []models.Video, current []models.PlaylistItem, opts UpdateOptions) []string {
	present := make(map[string]struct{}, len(current)+len(candidates))
	for _, item := range current {
		present[item.VideoID] = struct{}{}
	}

	var ids []string
	for _, v := range candidates {
		if _, ok := present[v.ID]; ok {
			continue
		}
		if !opts.Live && (v.Duration < opts.MinDuration || v.LiveStatus == models.LiveUpcoming) {
			continue
		}
		present[v.ID] = struct{}{}
		ids = append(ids, v.ID)
	}
	return ids
}
