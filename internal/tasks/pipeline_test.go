package tasks

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
	tu "github.com/desertthunder/ytcurate/internal/testing"
)

// seedUploads creates an uploads playlist per tracked channel and registers the videos behind items.
func seedUploads(f *fixture, uploads map[string][]models.PlaylistItem, videos ...models.Video) {
	for _, ch := range []string{"UCfav", "UCmusic", "UCboth", "UCother", "UCgame"} {
		f.api.CreatePlaylist(models.UploadsPlaylistID(ch))
	}
	for ch, items := range uploads {
		f.api.AddItems(models.UploadsPlaylistID(ch), items...)
	}
	f.api.AddVideos(videos...)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	released := testNow.Add(-3 * time.Hour)
	tooOld := testNow.AddDate(0, 0, -5)
	lastWeek := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	window := LastDays(2, testNow)

	t.Run("full run", func(t *testing.T) {
		f := newFixture(t, models.FailureLedger{"PLwl": {Name: "Watch Later", Failure: []string{"old1"}}})
		f.stats.rows = []models.HistoricalStatsRow{statsRow("week1", lastWeek)}

		short := video("short1", "UCmusic", 30*time.Second)
		short.IsShorts = true
		seedUploads(f, map[string][]models.PlaylistItem{
			"UCfav":   {upload("fav1", "UCfav", released)},
			"UCmusic": {upload("rel1", "UCmusic", released), upload("short1", "UCmusic", released), upload("long2", "UCmusic", released), upload("stale", "UCmusic", tooOld)},
			"UCboth":  {upload("long1", "UCboth", released)},
			"UCother": {upload("learn1", "UCother", released)},
		},
			video("fav1", "UCfav", 4*time.Minute),
			video("rel1", "UCmusic", 3*time.Minute),
			short,
			video("long2", "UCmusic", 25*time.Minute),
			video("long1", "UCboth", 20*time.Minute),
			video("learn1", "UCother", 15*time.Minute),
			video("week1", "UCmusic", 3*time.Minute),
		)

		f.api.AddItems("PLrelisten",
			models.PlaylistItem{VideoID: "again1", AddedAt: testNow.AddDate(0, 0, -10)},
			models.PlaylistItem{VideoID: "again2", AddedAt: testNow.AddDate(0, 0, -1)},
		)
		f.api.AddItems("PLlegacy", models.PlaylistItem{VideoID: "leg1", AddedAt: testNow.AddDate(0, -6, 0)})

		rc, _ := newRC()
		summary, err := f.curator.Run(ctx, rc, RunOptions{Window: window, RadarLimit: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.Discovered != 6 {
			t.Errorf("expected 6 discovered videos, got %d", summary.Discovered)
		}
		if summary.Replay == nil || summary.Replay.Replayed != 1 {
			t.Errorf("expected the ledger to be replayed, got %+v", summary.Replay)
		}

		wantRouted := map[models.Destination]int{
			models.DestBanger:     1,
			models.DestRelease:    1,
			models.DestWatchLater: 2,
			models.DestShorts:     1,
			models.DestNone:       1,
		}
		for dest, n := range wantRouted {
			if summary.Routed[dest] != n {
				t.Errorf("expected %d routed to %s, got %d", n, dest, summary.Routed[dest])
			}
		}

		checks := []struct {
			playlist string
			want     []string
		}{
			{"PLbanger", []string{"fav1"}},
			{"PLrelease", []string{"rel1", "again1"}},
			{"PLwl", []string{"old1", "long1", "learn1"}},
		}
		for _, c := range checks {
			if got := f.api.InsertedInto(c.playlist); !slices.Equal(got, c.want) {
				t.Errorf("%s: expected %v, got %v", c.playlist, c.want, got)
			}
		}

		if got := f.api.VideoIDs("PLrelisten"); !slices.Equal(got, []string{"again2"}) {
			t.Errorf("expected only the recent item to stay queued, got %v", got)
		}
		if summary.Radar == nil || summary.Radar.FromRelisten != 1 || summary.Radar.FromLegacy != 0 {
			t.Errorf("unexpected radar result: %+v", summary.Radar)
		}

		if summary.StatsFilled != 1 || summary.NewRows != 6 {
			t.Errorf("expected 1 filled and 6 new rows, got %d and %d", summary.StatsFilled, summary.NewRows)
		}
		if f.stats.saves != 1 || len(f.stats.rows) != 7 {
			t.Errorf("expected 7 rows saved once, got %d rows in %d saves", len(f.stats.rows), f.stats.saves)
		}
		if f.stats.rows[0].Weeks[0].Views == nil {
			t.Error("expected the one-week snapshot to be captured")
		}

		if summary.Added() != 6 || summary.Failed() != 0 || summary.Removed() != 0 {
			t.Errorf("unexpected totals: added %d, failed %d, removed %d", summary.Added(), summary.Failed(), summary.Removed())
		}
	})

	t.Run("no new videos only updates statistics", func(t *testing.T) {
		f := newFixture(t, nil)
		f.stats.rows = []models.HistoricalStatsRow{statsRow("week1", lastWeek)}
		seedUploads(f, map[string][]models.PlaylistItem{
			"UCmusic": {upload("stale", "UCmusic", tooOld)},
		}, video("week1", "UCmusic", 3*time.Minute))

		rc, buf := newRC()
		summary, err := f.curator.Run(ctx, rc, RunOptions{Window: window})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Discovered != 0 || summary.StatsFilled != 1 || summary.Radar != nil {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if len(f.api.Inserted) != 0 {
			t.Errorf("expected no insertion, got %v", f.api.Inserted)
		}
		if f.stats.saves != 1 {
			t.Errorf("expected statistics to be saved, got %d saves", f.stats.saves)
		}
		if !strings.Contains(buf.String(), "no addition to perform") {
			t.Errorf("expected a log line, got %q", buf.String())
		}
	})

	t.Run("discovery error aborts before any addition", func(t *testing.T) {
		f := newFixture(t, nil)
		seedUploads(f, map[string][]models.PlaylistItem{
			"UCfav": {upload("fav1", "UCfav", released)},
		}, video("fav1", "UCfav", 4*time.Minute))
		f.api.Errors["list:"+models.UploadsPlaylistID("UCmusic")] = tu.ServerError()

		rc, _ := newRC()
		_, err := f.curator.Run(ctx, rc, RunOptions{Window: window})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if len(f.api.Inserted) != 0 || f.stats.saves != 0 {
			t.Error("nothing should be written after a discovery failure")
		}
	})

	t.Run("skip ledger leaves pending entries alone", func(t *testing.T) {
		f := newFixture(t, models.FailureLedger{"PLwl": {Name: "Watch Later", Failure: []string{"old1"}}})
		seedUploads(f, nil)

		rc, _ := newRC()
		summary, err := f.curator.Run(ctx, rc, RunOptions{Window: window, SkipLedger: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Replay != nil || f.curator.Ledger().Pending() != 1 {
			t.Errorf("ledger should be untouched, got %+v", summary.Replay)
		}
	})
}
