// package tasks implements the curation pipeline over the YouTube Data API.
//
// The core abstraction is Curator, which discovers uploads, classifies them into playlists, tracks
// statistics and refills the release radar. Every step receives an explicit RunContext.
package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// YouTubeAPI is the subset of the Data API the curator calls.
//
// Implemented by [services.YouTubeService]; errors carry a [services.Outcome].
type YouTubeAPI interface {
	PlaylistPages(ctx context.Context, playlistID string, fn func([]models.PlaylistItem) bool) error
	PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error)
	Videos(ctx context.Context, ids []string) ([]models.Video, error)
	Channels(ctx context.Context, ids []string) ([]models.Channel, error)
	InsertItem(ctx context.Context, playlistID, videoID string) error
	DeleteItem(ctx context.Context, itemID string) error
}

// LedgerSaver persists the failure ledger.
type LedgerSaver interface {
	Save(models.FailureLedger) error
}

// StatsStore loads and rewrites the historical statistics table.
type StatsStore interface {
	Load() ([]models.HistoricalStatsRow, error)
	Save([]models.HistoricalStatsRow) error
}

// Archiver appends evicted videos to a permanent log.
type Archiver interface {
	Append([]models.ArchivedVideo) error
}

// EventRecorder keeps an audit trail of ledger activity.
type EventRecorder interface {
	RecordLedgerEvent(models.LedgerEvent) error
}

// RunContext carries everything a pipeline step needs to know about the current run.
type RunContext struct {
	Now      time.Time             // Reference instant for every window and age computation
	RunID    string                // Identifier attached to log lines and ledger events
	Logger   *log.Logger           // Run logger
	Progress chan<- ProgressUpdate // Optional; updates are dropped when nil or full
	LastRun  *time.Time            // Start of the previous successful run, when known
}

// NewRunContext creates a context for a run starting at now. A nil logger discards output.
func NewRunContext(now time.Time, runID string, logger *log.Logger) *RunContext {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &RunContext{Now: now, RunID: runID, Logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (rc *RunContext) sendProgress(update ProgressUpdate) {
	if rc.Progress == nil {
		return
	}
	select {
	case rc.Progress <- update:
	default:
	}
}

// CuratorOpts wires a [Curator]. API is required; stores may be nil.
type CuratorOpts struct {
	API        YouTubeAPI
	Rules      shared.RulesConfig
	Groups     models.ChannelGroups
	Playlists  models.Playlists
	AddOn      models.AddOn
	Ledger     models.FailureLedger
	Stats      StatsStore
	Archive    Archiver
	Events     EventRecorder
	LedgerFile LedgerSaver
}

// Curator runs the curation steps against one account.
type Curator struct {
	api        YouTubeAPI
	rules      shared.RulesConfig
	groups     models.ChannelGroups
	playlists  models.Playlists
	addOn      models.AddOn
	ledger     models.FailureLedger
	stats      StatsStore
	archive    Archiver
	events     EventRecorder
	ledgerFile LedgerSaver
	classifier *Classifier
}

// NewCurator creates a Curator from opts.
func NewCurator(opts CuratorOpts) (*Curator, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("%w: youtube client not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Ledger == nil {
		opts.Ledger = models.FailureLedger{}
	}
	if opts.Groups == nil {
		opts.Groups = models.ChannelGroups{}
	}
	if opts.Playlists == nil {
		opts.Playlists = models.Playlists{}
	}

	return &Curator{
		api:        opts.API,
		rules:      opts.Rules,
		groups:     opts.Groups,
		playlists:  opts.Playlists,
		addOn:      opts.AddOn,
		ledger:     opts.Ledger,
		stats:      opts.Stats,
		archive:    opts.Archive,
		events:     opts.Events,
		ledgerFile: opts.LedgerFile,
		classifier: NewClassifier(opts.Groups, opts.Rules, opts.AddOn),
	}, nil
}

// Ledger returns the failure ledger as mutated by the run so far.
func (c *Curator) Ledger() models.FailureLedger {
	return c.ledger
}

// Channels returns every tracked channel: the union of the music and other categories.
func (c *Curator) Channels() []string {
	categories := append(append([]string{}, c.rules.MusicCategories...), c.rules.OtherCategories...)
	return c.groups.Union(categories...)
}

// addVideos inserts ids one by one. Failures are logged and recorded in the ledger; the batch continues.
func (c *Curator) addVideos(ctx context.Context, rc *RunContext, ref models.PlaylistRef, ids []string) (added, failed int, err error) {
	for i, id := range ids {
		rc.sendProgress(addVideoUpdate(i+1, len(ids), ref))

		if insertErr := c.api.InsertItem(ctx, ref.ID, id); insertErr != nil {
			rc.Logger.Warn("addition request failure", "video", id, "playlist", ref.ID, "err", insertErr)
			c.recordFailure(rc, ref, id)
			failed++
			continue
		}
		added++
	}

	if failed > 0 {
		err = c.saveLedger()
	}
	return added, failed, err
}

// deleteItems removes membership records. Failures are logged and counted.
func (c *Curator) deleteItems(ctx context.Context, rc *RunContext, items []models.PlaylistItem) (deleted, failed int) {
	for _, item := range items {
		if err := c.api.DeleteItem(ctx, item.ItemID); err != nil {
			rc.Logger.Warn("deletion request failure", "video", item.VideoID, "item", item.ItemID, "err", err)
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}

func (c *Curator) recordFailure(rc *RunContext, ref models.PlaylistRef, videoID string) {
	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	c.ledger.Record(ref.ID, name, videoID)
	c.recordEvent(rc, ref.ID, videoID, models.LedgerFailed)
}

func (c *Curator) recordEvent(rc *RunContext, playlistID, videoID, kind string) {
	if c.events == nil {
		return
	}
	event := models.LedgerEvent{RunID: rc.RunID, PlaylistID: playlistID, VideoID: videoID, Kind: kind, CreatedAt: rc.Now}
	if err := c.events.RecordLedgerEvent(event); err != nil {
		rc.Logger.Debug("ledger event not recorded", "video", videoID, "err", err)
	}
}

func (c *Curator) saveLedger() error {
	if c.ledgerFile == nil {
		return nil
	}
	return c.ledgerFile.Save(c.ledger)
}
