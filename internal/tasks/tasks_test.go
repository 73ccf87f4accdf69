package tasks

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
	tu "github.com/desertthunder/ytcurate/internal/testing"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func testRules() shared.RulesConfig {
	return shared.RulesConfig{
		MaxDurationMinutes:  10,
		EvictAfterDays:      7,
		RadarLimit:          40,
		RelistenMinAgeDays:  7,
		MusicCategories:     []string{"MUSIQUE"},
		OtherCategories:     []string{"APPRENTISSAGE", "GAMING"},
		SkipSortCategoryTag: "ysc",
	}
}

func testGroups() models.ChannelGroups {
	return models.ChannelGroups{
		"MUSIQUE":       {"UCfav", "UCmusic", "UCboth"},
		"APPRENTISSAGE": {"UCboth", "UCother"},
		"GAMING":        {"UCgame"},
	}
}

func testPlaylists() models.Playlists {
	return models.Playlists{
		models.RoleRelease:     {ID: "PLrelease", Name: "Release Radar"},
		models.RoleBanger:      {ID: "PLbanger", Name: "Banger Radar"},
		models.RoleWatchLater:  {ID: "PLwl", Name: "Watch Later"},
		models.RoleReListening: {ID: "PLrelisten", Name: "Re-listening"},
		models.RoleLegacy:      {ID: "PLlegacy", Name: "Legacy"},
	}
}

func testAddOn() models.AddOn {
	return models.AddOn{Favorites: map[string]string{"Favorite Artist": "UCfav"}}
}

// newRC returns a run context at testNow whose log output is captured in the returned buffer.
func newRC() (*RunContext, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRunContext(testNow, "test-run", shared.NewLogger(&buf)), &buf
}

type memLedger struct {
	saved models.FailureLedger
	saves int
}

func (m *memLedger) Save(l models.FailureLedger) error {
	m.saves++
	m.saved = models.FailureLedger{}
	for id, entry := range l {
		entry.Failure = slices.Clone(entry.Failure)
		m.saved[id] = entry
	}
	return nil
}

type memStats struct {
	rows  []models.HistoricalStatsRow
	saves int
}

func (m *memStats) Load() ([]models.HistoricalStatsRow, error) {
	return slices.Clone(m.rows), nil
}

func (m *memStats) Save(rows []models.HistoricalStatsRow) error {
	m.saves++
	m.rows = slices.Clone(rows)
	return nil
}

type memArchive struct {
	rows []models.ArchivedVideo
}

func (m *memArchive) Append(rows []models.ArchivedVideo) error {
	m.rows = append(m.rows, rows...)
	return nil
}

type memEvents struct {
	events []models.LedgerEvent
}

func (m *memEvents) RecordLedgerEvent(e models.LedgerEvent) error {
	m.events = append(m.events, e)
	return nil
}

type fixture struct {
	api     *tu.FakeYouTube
	ledger  *memLedger
	stats   *memStats
	archive *memArchive
	events  *memEvents
	curator *Curator
}

func newFixture(t *testing.T, ledger models.FailureLedger) *fixture {
	t.Helper()

	f := &fixture{
		api:     tu.NewFakeYouTube(),
		ledger:  &memLedger{},
		stats:   &memStats{},
		archive: &memArchive{},
		events:  &memEvents{},
	}
	f.api.CreatePlaylist("PLrelease", "PLbanger", "PLwl", "PLrelisten", "PLlegacy")

	curator, err := NewCurator(CuratorOpts{
		API:        f.api,
		Rules:      testRules(),
		Groups:     testGroups(),
		Playlists:  testPlaylists(),
		AddOn:      testAddOn(),
		Ledger:     ledger,
		Stats:      f.stats,
		Archive:    f.archive,
		Events:     f.events,
		LedgerFile: f.ledger,
	})
	if err != nil {
		t.Fatalf("failed to create curator: %v", err)
	}
	f.curator = curator
	return f
}

func video(id, channelID string, d time.Duration) models.Video {
	views, likes, comments := int64(100), int64(10), int64(1)
	return models.Video{
		ID:          id,
		ChannelID:   channelID,
		Title:       "video " + id,
		ReleaseDate: testNow.Add(-time.Hour),
		Duration:    d,
		LiveStatus:  models.LiveNone,
		Status:      models.PrivacyPublic,
		Stats:       models.Stats{Views: &views, Likes: &likes, Comments: &comments},
	}
}

func TestNewCurator(t *testing.T) {
	t.Run("requires api", func(t *testing.T) {
		if _, err := NewCurator(CuratorOpts{}); err == nil {
			t.Error("expected error without api")
		}
	})

	t.Run("channels union", func(t *testing.T) {
		f := newFixture(t, nil)
		got := f.curator.Channels()
		want := []string{"UCfav", "UCmusic", "UCboth", "UCother", "UCgame"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("nil ledger becomes empty", func(t *testing.T) {
		f := newFixture(t, nil)
		if f.curator.Ledger() == nil {
			t.Error("ledger should not be nil")
		}
	})
}

func TestRunContextProgress(t *testing.T) {
	rc, _ := newRC()
	rc.sendProgress(ProgressUpdate{Phase: PhaseDiscover})

	ch := make(chan ProgressUpdate, 1)
	rc.Progress = ch
	rc.sendProgress(ProgressUpdate{Phase: PhaseDiscover, Step: 1})
	rc.sendProgress(ProgressUpdate{Phase: PhaseDiscover, Step: 2})

	got := <-ch
	if got.Step != 1 {
		t.Errorf("expected first update to be kept, got step %d", got.Step)
	}
	select {
	case extra := <-ch:
		t.Errorf("full channel should drop updates, got %+v", extra)
	default:
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseReplay, "replay_ledger"},
		{PhaseDiscover, "discover_uploads"},
		{PhaseEnrich, "enrich_videos"},
		{PhaseStats, "weekly_stats"},
		{PhaseUpdate, "update_playlist"},
		{PhaseAdd, "add_videos"},
		{PhaseRadar, "fill_radar"},
		{PhaseSort, "sort_channels"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
