package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// Enrich fetches statistics for ids in batches of [services.MaxBatch].
//
// The result holds exactly one video per input id, in input order. Ids the API does not return
// are padded with [models.MissingVideo]. Any API error aborts.
func (c *Curator) Enrich(ctx context.Context, rc *RunContext, ids []string) ([]models.Video, error) {
	byID := make(map[string]models.Video, len(ids))
	chunks := shared.Chunk(ids, services.MaxBatch)

	for i, chunk := range chunks {
		rc.sendProgress(enrichUpdate(i+1, len(chunks)))

		videos, err := c.api.Videos(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: statistics: %w", shared.ErrAPIRequest, err)
		}
		for _, v := range videos {
			byID[v.ID] = v
		}
	}

	out := make([]models.Video, len(ids))
	for i, id := range ids {
		v, ok := byID[id]
		if !ok {
			v = models.MissingVideo(id)
		}
		out[i] = v
	}
	return out, nil
}

// EnrichItems enriches discovered playlist items. Identity fields missing from a video (always
// the case for deleted ones) are taken from the item, and the item's publication date wins.
func (c *Curator) EnrichItems(ctx context.Context, rc *RunContext, items []models.PlaylistItem) ([]models.Video, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.VideoID
	}

	videos, err := c.Enrich(ctx, rc, ids)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		v := &videos[i]
		if v.ChannelID == "" {
			v.ChannelID = item.ChannelID
		}
		if v.ChannelName == "" {
			v.ChannelName = item.ChannelName
		}
		if v.Title == "" {
			v.Title = item.Title
		}
		if !item.ReleaseDate.IsZero() {
			v.ReleaseDate = item.ReleaseDate
		}
	}
	return videos, nil
}

// subscribers fetches subscriber counts for the distinct non-empty channel ids.
func (c *Curator) subscribers(ctx context.Context, channelIDs []string) (map[string]*int64, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, id := range channelIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	subs := make(map[string]*int64, len(ids))
	for _, chunk := range shared.Chunk(ids, services.MaxBatch) {
		channels, err := c.api.Channels(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: channel statistics: %w", shared.ErrAPIRequest, err)
		}
		for _, ch := range channels {
			subs[ch.ID] = ch.Subscribers
		}
	}
	return subs, nil
}
