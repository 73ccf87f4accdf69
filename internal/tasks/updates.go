package tasks

import (
	"fmt"

	"github.com/desertthunder/ytcurate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PhaseReplay Phase = iota
	PhaseDiscover
	PhaseEnrich
	PhaseStats
	PhaseUpdate
	PhaseAdd
	PhaseRadar
	PhaseSort
)

func (p Phase) String() string {
	switch p {
	case PhaseReplay:
		return "replay_ledger"
	case PhaseDiscover:
		return "discover_uploads"
	case PhaseEnrich:
		return "enrich_videos"
	case PhaseStats:
		return "weekly_stats"
	case PhaseUpdate:
		return "update_playlist"
	case PhaseAdd:
		return "add_videos"
	case PhaseRadar:
		return "fill_radar"
	case PhaseSort:
		return "sort_channels"
	default:
		return ""
	}
}

func replayUpdate(step, total int, entry models.LedgerEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseReplay,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Replaying %d failed addition(s) to %s...", len(entry.Failure), entry.Name),
	}
}

func discoverUpdate(step, total int, channelID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDiscover,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking for videos to add (%s)", step, total, channelID),
	}
}

func enrichUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseEnrich,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching statistics, batch %d/%d...", step, total),
	}
}

func weeklyStatsUpdate(step, total, weeks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseStats,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Capturing statistics %d week(s) after release...", weeks),
	}
}

func updatePlaylistUpdate(step, total int, ref models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseUpdate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Updating playlist %s...", ref.Name),
		Data:    ref,
	}
}

func addVideoUpdate(step, total int, ref models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAdd,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding videos to the playlist (%s)", step, total, ref.ID),
	}
}

func fillRadarUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRadar,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

func sortChannelsUpdate(step, total int, category string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSort,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Sorting %s", step, total, category),
	}
}
