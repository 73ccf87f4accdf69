package tasks

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

func statsRow(id string, released time.Time) models.HistoricalStatsRow {
	return models.HistoricalStatsRow{VideoID: id, ChannelID: "UCmusic", ReleaseDate: released, Status: models.PrivacyPublic}
}

func TestWeeklyStats(t *testing.T) {
	ctx := context.Background()
	oneWeek := time.Date(2024, 6, 8, 15, 0, 0, 0, time.UTC)
	fourWeeks := time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC)

	newRows := func() []models.HistoricalStatsRow {
		captured := statsRow("captured", oneWeek)
		captured.Weeks[0] = models.Snapshot{Views: ptr(int64(5)), Likes: ptr(int64(1)), Comments: ptr(int64(0))}
		return []models.HistoricalStatsRow{
			statsRow("due", oneWeek),
			captured,
			statsRow("nextday", oneWeek.Add(24*time.Hour)),
			statsRow("month", fourWeeks),
			statsRow("gone", oneWeek.Add(-time.Hour)),
		}
	}

	setup := func(t *testing.T) *fixture {
		f := newFixture(t, nil)
		for _, id := range []string{"due", "captured", "nextday", "month"} {
			v := video(id, "UCmusic", time.Minute)
			v.Status = models.PrivacyUnlisted
			f.api.AddVideos(v)
		}
		return f
	}

	t.Run("fills rows released exactly one week ago", func(t *testing.T) {
		f := setup(t)
		rows := newRows()

		rc, _ := newRC()
		n, err := f.curator.WeeklyStats(ctx, rc, rows, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 rows, got %d", n)
		}
		if len(f.api.VideoCalls) != 1 || !slices.Equal(f.api.VideoCalls[0], []string{"due", "gone"}) {
			t.Errorf("unexpected calls: %v", f.api.VideoCalls)
		}

		due := rows[0]
		if due.Weeks[0].Views == nil || *due.Weeks[0].Views != 100 || *due.Weeks[0].Likes != 10 {
			t.Errorf("expected week 1 stats, got %+v", due.Weeks[0])
		}
		if due.Status != models.PrivacyUnlisted {
			t.Errorf("expected refreshed status, got %q", due.Status)
		}
		if *rows[1].Weeks[0].Views != 5 {
			t.Errorf("captured values must not change, got %d", *rows[1].Weeks[0].Views)
		}
		if rows[2].Weeks[0].Views != nil || rows[3].Weeks[0].Views != nil {
			t.Error("rows released on other days must not change")
		}

		gone := rows[4]
		if gone.Weeks[0].Views != nil || gone.Status != models.PrivacyDeleted {
			t.Errorf("deleted video should stay null with deleted status, got %+v", gone)
		}
	})

	t.Run("offsets are independent", func(t *testing.T) {
		f := setup(t)
		rows := newRows()

		rc, _ := newRC()
		n, err := f.curator.WeeklyStats(ctx, rc, rows, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 || rows[3].Weeks[1].Views == nil {
			t.Errorf("expected the four-week row filled, got %d", n)
		}
		if rows[3].Weeks[0].Views != nil || rows[0].Weeks[1].Views != nil {
			t.Error("other offsets must not change")
		}
	})

	t.Run("running twice is idempotent", func(t *testing.T) {
		f := setup(t)
		f.api.AddVideos(video("gone", "UCmusic", time.Minute))
		rows := newRows()

		rc, _ := newRC()
		if _, err := f.curator.AllWeeklyStats(ctx, rc, rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		snapshot := slices.Clone(rows)
		calls := len(f.api.VideoCalls)

		n, err := f.curator.AllWeeklyStats(ctx, rc, rows)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 || len(f.api.VideoCalls) != calls {
			t.Errorf("second pass should fetch nothing, filled %d", n)
		}
		if !reflect.DeepEqual(rows, snapshot) {
			t.Error("second pass changed rows")
		}
	})

	t.Run("nothing due makes no call", func(t *testing.T) {
		f := setup(t)
		rc, logs := newRC()
		n, err := f.curator.WeeklyStats(ctx, rc, []models.HistoricalStatsRow{statsRow("x", testNow)}, 12)
		if err != nil || n != 0 || len(f.api.VideoCalls) != 0 {
			t.Errorf("expected a no-op, got n=%d err=%v", n, err)
		}
		if logs.Len() == 0 {
			t.Error("expected an info line")
		}
	})

	t.Run("unknown offset", func(t *testing.T) {
		f := setup(t)
		rc, _ := newRC()
		if _, err := f.curator.WeeklyStats(ctx, rc, nil, 2); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAppendStatsRows(t *testing.T) {
	rows := []models.HistoricalStatsRow{statsRow("known", testNow)}
	short := video("short", "UCmusic", 30*time.Second)
	short.IsShorts = true

	videos := []models.Video{
		video("known", "UCmusic", time.Minute),
		short,
		short,
		models.MissingVideo("gone"),
	}

	rows, added := AppendStatsRows(rows, videos)
	if added != 2 || len(rows) != 3 {
		t.Fatalf("expected 2 new rows, got %d (%d total)", added, len(rows))
	}

	got := rows[1]
	if got.VideoID != "short" || got.IsShorts == nil || !*got.IsShorts || got.Duration == nil || *got.Duration != 30 {
		t.Errorf("unexpected row: %+v", got)
	}
	for _, w := range got.Weeks {
		if w.Views != nil || w.Likes != nil || w.Comments != nil {
			t.Errorf("new rows start with null offsets, got %+v", w)
		}
	}
	if rows[2].IsShorts != nil || rows[2].Duration != nil || rows[2].Status != models.PrivacyDeleted {
		t.Errorf("deleted video row should have null details, got %+v", rows[2])
	}

	again, added := AppendStatsRows(rows, videos)
	if added != 0 || len(again) != 3 {
		t.Errorf("appending twice must not duplicate rows")
	}
}
