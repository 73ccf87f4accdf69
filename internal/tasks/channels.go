package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/services"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// SortChannels returns a copy of groups where each category whose name does not contain skipTag
// is ordered by channel title, case-insensitively.
//
// Channels the API no longer returns are dropped from sorted categories.
func (c *Curator) SortChannels(ctx context.Context, rc *RunContext, groups models.ChannelGroups, skipTag string) (models.ChannelGroups, error) {
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sorted := make(models.ChannelGroups, len(groups))
	for i, category := range categories {
		ids := groups[category]
		if skipTag != "" && strings.Contains(category, skipTag) {
			sorted[category] = ids
			continue
		}
		rc.sendProgress(sortChannelsUpdate(i+1, len(categories), category))

		var channels []models.Channel
		for _, chunk := range shared.Chunk(ids, services.MaxBatch) {
			batch, err := c.api.Channels(ctx, chunk)
			if err != nil {
				return nil, fmt.Errorf("%w: channels of %s: %w", shared.ErrAPIRequest, category, err)
			}
			channels = append(channels, batch...)
		}

		sort.SliceStable(channels, func(a, b int) bool {
			return strings.ToLower(channels[a].Title) < strings.ToLower(channels[b].Title)
		})

		out := make([]string, len(channels))
		for j, ch := range channels {
			out[j] = ch.ID
		}
		if dropped := len(ids) - len(out); dropped > 0 {
			rc.Logger.Warn("channels missing from API response", "category", category, "dropped", dropped)
		}
		sorted[category] = out
	}
	return sorted, nil
}
