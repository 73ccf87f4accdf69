package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// WeeklyStats captures statistics for rows released exactly weeks before the reference date
// (UTC midnight) whose views for that offset are still unset. It fills views, likes and comments
// for the offset, refreshes the status, and returns how many rows it touched.
//
// Rows already captured for the offset are never overwritten, so running it twice is a no-op.
func (c *Curator) WeeklyStats(ctx context.Context, rc *RunContext, rows []models.HistoricalStatsRow, weeks int) (int, error) {
	idx, ok := models.OffsetIndex(weeks)
	if !ok {
		return 0, fmt.Errorf("%w: unsupported week offset %d", shared.ErrInvalidArgument, weeks)
	}

	target := shared.Midnight(rc.Now.UTC()).AddDate(0, 0, -7*weeks)

	var selected []int
	var ids []string
	for i := range rows {
		if rows[i].Weeks[idx].Views != nil || !sameDay(rows[i].ReleaseDate, target) {
			continue
		}
		selected = append(selected, i)
		ids = append(ids, rows[i].VideoID)
	}

	if len(selected) == 0 {
		rc.Logger.Info("no change to apply on historical data", "weeks", weeks)
		return 0, nil
	}

	videos, err := c.Enrich(ctx, rc, ids)
	if err != nil {
		return 0, err
	}

	for n, i := range selected {
		v := videos[n]
		rows[i].Weeks[idx] = models.Snapshot{Views: v.Stats.Views, Likes: v.Stats.Likes, Comments: v.Stats.Comments}
		rows[i].Status = v.Status
	}
	return len(selected), nil
}

// AllWeeklyStats runs [Curator.WeeklyStats] for every offset, independently.
func (c *Curator) AllWeeklyStats(ctx context.Context, rc *RunContext, rows []models.HistoricalStatsRow) (int, error) {
	total := 0
	for i, weeks := range models.WeekOffsets {
		rc.sendProgress(weeklyStatsUpdate(i+1, len(models.WeekOffsets), weeks))
		n, err := c.WeeklyStats(ctx, rc, rows, weeks)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// AppendStatsRows adds a row with unset offsets for each video not already tracked.
func AppendStatsRows(rows []models.HistoricalStatsRow, videos []models.Video) ([]models.HistoricalStatsRow, int) {
	known := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		known[row.VideoID] = struct{}{}
	}

	added := 0
	for _, v := range videos {
		if _, ok := known[v.ID]; ok {
			continue
		}
		known[v.ID] = struct{}{}
		rows = append(rows, models.NewStatsRow(v))
		added++
	}
	return rows, added
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
