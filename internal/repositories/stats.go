package repositories

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// StatsColumns is the fixed header of the historical statistics table.
var StatsColumns = statsColumns()

func statsColumns() []string {
	cols := []string{"video_id", "channel_id", "release_date", "status", "is_shorts", "duration"}
	for _, metric := range []string{"views", "likes", "comments"} {
		for _, w := range models.WeekOffsets {
			cols = append(cols, fmt.Sprintf("%s_w%d", metric, w))
		}
	}
	return append(cols, "channel_name", "video_title")
}

// StatsStore persists [models.HistoricalStatsRow] values as CSV.
type StatsStore struct {
	path string
}

// NewStatsStore creates a store backed by the file at path.
func NewStatsStore(path string) *StatsStore {
	return &StatsStore{path: path}
}

// Load reads every row. A missing file yields no rows.
func (s *StatsStore) Load() ([]models.HistoricalStatsRow, error) {
	table, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}

	rows := make([]models.HistoricalStatsRow, 0, len(table.records))
	for _, rec := range table.records {
		row := models.HistoricalStatsRow{
			VideoID:     table.get(rec, "video_id"),
			ChannelID:   table.get(rec, "channel_id"),
			ReleaseDate: parseDate(table.get(rec, "release_date")),
			Status:      models.Privacy(table.get(rec, "status")),
			IsShorts:    parseBool(table.get(rec, "is_shorts")),
			Duration:    parseInt(table.get(rec, "duration")),
			ChannelName: table.get(rec, "channel_name"),
			Title:       table.get(rec, "video_title"),
		}
		if row.VideoID == "" {
			continue
		}
		for i, w := range models.WeekOffsets {
			row.Weeks[i] = models.Snapshot{
				Views:    parseInt(table.get(rec, fmt.Sprintf("views_w%d", w))),
				Likes:    parseInt(table.get(rec, fmt.Sprintf("likes_w%d", w))),
				Comments: parseInt(table.get(rec, fmt.Sprintf("comments_w%d", w))),
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save sorts rows by release date then video id and rewrites the table.
func (s *StatsStore) Save(rows []models.HistoricalStatsRow) error {
	sorted := append([]models.HistoricalStatsRow(nil), rows...)
	SortStatsRows(sorted)

	return writeAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(StatsColumns); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
		}
		for _, row := range sorted {
			if err := cw.Write(statsRecord(row)); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrStateFile, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// SortStatsRows orders rows by (release_date, video_id).
func SortStatsRows(rows []models.HistoricalStatsRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ReleaseDate.Equal(rows[j].ReleaseDate) {
			return rows[i].ReleaseDate.Before(rows[j].ReleaseDate)
		}
		return rows[i].VideoID < rows[j].VideoID
	})
}

func statsRecord(row models.HistoricalStatsRow) []string {
	rec := []string{
		row.VideoID,
		row.ChannelID,
		formatDate(row.ReleaseDate),
		string(row.Status),
		formatBool(row.IsShorts),
		formatInt(row.Duration),
	}
	for i := range models.WeekOffsets {
		rec = append(rec, formatInt(row.Weeks[i].Views))
	}
	for i := range models.WeekOffsets {
		rec = append(rec, formatInt(row.Weeks[i].Likes))
	}
	for i := range models.WeekOffsets {
		rec = append(rec, formatInt(row.Weeks[i].Comments))
	}
	return append(rec, row.ChannelName, row.Title)
}
