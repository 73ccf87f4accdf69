package models

import "time"

// WeekOffsets are the week offsets after release at which statistics are captured.
var WeekOffsets = [4]int{1, 4, 12, 24}

// Snapshot is one captured (views, likes, comments) triplet.
type Snapshot struct {
	Views    *int64
	Likes    *int64
	Comments *int64
}

// HistoricalStatsRow tracks a video's statistics at each week offset.
type HistoricalStatsRow struct {
	VideoID     string
	ChannelID   string
	ReleaseDate time.Time
	Status      Privacy
	IsShorts    *bool
	Duration    *int64
	Weeks       [len(WeekOffsets)]Snapshot
	ChannelName string
	Title       string
}

// OffsetIndex returns the position of a week offset in [WeekOffsets].
func OffsetIndex(weeks int) (int, bool) {
	for i, w := range WeekOffsets {
		if w == weeks {
			return i, true
		}
	}
	return 0, false
}

// NewStatsRow builds a row for a freshly discovered video, with every offset unset.
func NewStatsRow(v Video) HistoricalStatsRow {
	row := HistoricalStatsRow{
		VideoID:     v.ID,
		ChannelID:   v.ChannelID,
		ReleaseDate: v.ReleaseDate,
		Status:      v.Status,
		ChannelName: v.ChannelName,
		Title:       v.Title,
	}
	if !v.Deleted() {
		shorts := v.IsShorts
		seconds := int64(v.Duration / time.Second)
		row.IsShorts = &shorts
		row.Duration = &seconds
	}
	return row
}

// LedgerEntry lists the videos that could not be inserted into one playlist.
type LedgerEntry struct {
	Name    string   `json:"name"`
	Failure []string `json:"failure"`
}

// FailureLedger maps a playlist id to its pending insertions.
type FailureLedger map[string]LedgerEntry

// Record appends videoID to the pending list of playlistID.
func (l FailureLedger) Record(playlistID, name, videoID string) {
	entry := l[playlistID]
	if entry.Name == "" {
		entry.Name = name
	}
	entry.Failure = append(entry.Failure, videoID)
	l[playlistID] = entry
}

// Pending counts the ids waiting for replay across every playlist.
func (l FailureLedger) Pending() int {
	n := 0
	for _, entry := range l {
		n += len(entry.Failure)
	}
	return n
}

// RunStatus is the lifecycle state of a [Run].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of the pipeline.
type Run struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Added      int        `json:"added"`
	Removed    int        `json:"removed"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

// Ledger event kinds.
const (
	LedgerFailed   = "failed"
	LedgerReplayed = "replayed"
)

// LedgerEvent records one insertion failure or successful replay during a run.
type LedgerEvent struct {
	RunID      string    `json:"run_id"`
	PlaylistID string    `json:"playlist_id"`
	VideoID    string    `json:"video_id"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}
