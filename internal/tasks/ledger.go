package tasks

import (
	"context"
	"sort"

	"github.com/desertthunder/ytcurate/internal/models"
)

// ReplayResult reports a ledger replay.
type ReplayResult struct {
	Playlists int `json:"playlists"`
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
}

// ReplayLedger retries every pending insertion recorded by previous runs.
//
// Each pending list is cleared before its retry. Ids that fail again are recorded again, so they
// stay pending until an insertion succeeds.
func (c *Curator) ReplayLedger(ctx context.Context, rc *RunContext) (*ReplayResult, error) {
	result := &ReplayResult{}

	playlistIDs := make([]string, 0, len(c.ledger))
	for id, entry := range c.ledger {
		if len(entry.Failure) > 0 {
			playlistIDs = append(playlistIDs, id)
		}
	}
	sort.Strings(playlistIDs)

	if len(playlistIDs) == 0 {
		return result, nil
	}

	for i, playlistID := range playlistIDs {
		entry := c.ledger[playlistID]
		rc.sendProgress(replayUpdate(i+1, len(playlistIDs), entry))
		rc.Logger.Info("addition from previous API failure", "playlist", entry.Name, "videos", len(entry.Failure))

		pending := entry.Failure
		entry.Failure = []string{}
		c.ledger[playlistID] = entry

		ref := models.PlaylistRef{ID: playlistID, Name: entry.Name}
		for _, videoID := range pending {
			if err := c.api.InsertItem(ctx, playlistID, videoID); err != nil {
				rc.Logger.Warn("replay failed, keeping video pending", "video", videoID, "playlist", playlistID, "err", err)
				c.recordFailure(rc, ref, videoID)
				result.Failed++
				continue
			}
			c.recordEvent(rc, playlistID, videoID, models.LedgerReplayed)
			result.Replayed++
		}
		result.Playlists++
	}

	return result, c.saveLedger()
}
