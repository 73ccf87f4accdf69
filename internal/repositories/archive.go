package repositories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// ArchiveColumns is the header of the eviction archive.
var ArchiveColumns = []string{
	"video_id", "item_id", "playlist_id", "video_title", "channel_id", "channel_name", "release_date",
	"status", "subscribers", "views", "likes", "comments", "duration", "is_shorts", "live_status", "evicted_at",
}

// ArchiveStore appends evicted videos to a CSV log that is never rewritten.
type ArchiveStore struct {
	path string
}

// NewArchiveStore creates a store backed by the file at path.
func NewArchiveStore(path string) *ArchiveStore {
	return &ArchiveStore{path: path}
}

// Append adds rows at the end of the archive, writing the header first when the file is new.
func (s *ArchiveStore) Append(rows []models.ArchivedVideo) error {
	if len(rows) == 0 {
		return nil
	}

	fresh := false
	if info, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
		fresh = true
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(ArchiveColumns); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(archiveRecord(row)); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
	}
	return nil
}

// Load reads the archive back, mostly for reporting.
func (s *ArchiveStore) Load() ([]models.ArchivedVideo, error) {
	table, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ArchivedVideo, 0, len(table.records))
	for _, rec := range table.records {
		duration := parseInt(table.get(rec, "duration"))
		row := models.ArchivedVideo{
			Item: models.PlaylistItem{
				ItemID:      table.get(rec, "item_id"),
				PlaylistID:  table.get(rec, "playlist_id"),
				VideoID:     table.get(rec, "video_id"),
				Title:       table.get(rec, "video_title"),
				ChannelID:   table.get(rec, "channel_id"),
				ChannelName: table.get(rec, "channel_name"),
				ReleaseDate: parseDate(table.get(rec, "release_date")),
				Status:      models.Privacy(table.get(rec, "status")),
			},
			Video: models.Video{
				ID:         table.get(rec, "video_id"),
				LiveStatus: models.LiveStatus(table.get(rec, "live_status")),
				Stats: models.Stats{
					Views:    parseInt(table.get(rec, "views")),
					Likes:    parseInt(table.get(rec, "likes")),
					Comments: parseInt(table.get(rec, "comments")),
				},
			},
			Subscribers: parseInt(table.get(rec, "subscribers")),
			EvictedAt:   parseDate(table.get(rec, "evicted_at")),
		}
		if duration != nil {
			row.Video.Duration = time.Duration(*duration) * time.Second
		}
		if shorts := parseBool(table.get(rec, "is_shorts")); shorts != nil {
			row.Video.IsShorts = *shorts
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func archiveRecord(row models.ArchivedVideo) []string {
	var duration, shorts string
	if !row.Video.Deleted() && row.Video.ID != "" {
		duration = strconv.FormatInt(int64(row.Video.Duration/time.Second), 10)
		shorts = formatBool(&row.Video.IsShorts)
	}
	return []string{
		row.Item.VideoID,
		row.Item.ItemID,
		row.Item.PlaylistID,
		row.Item.Title,
		row.Item.ChannelID,
		row.Item.ChannelName,
		formatDate(row.Item.ReleaseDate),
		string(row.Item.Status),
		formatInt(row.Subscribers),
		formatInt(row.Video.Stats.Views),
		formatInt(row.Video.Stats.Likes),
		formatInt(row.Video.Stats.Comments),
		duration,
		shorts,
		string(row.Video.LiveStatus),
		formatDate(row.EvictedAt),
	}
}
