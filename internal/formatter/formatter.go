// package formatter renders run history, the failure ledger and run summaries as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
	"github.com/desertthunder/ytcurate/internal/tasks"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

var runHeaders = []string{"id", "mode", "started_at", "finished_at", "status", "added", "removed", "failed", "error"}

// ExportRuns renders runs in format.
func ExportRuns(runs []models.Run, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RunsToCSV(runs)
	case FormatMarkdown:
		return RunsToMarkdown(runs), nil
	case FormatJSON:
		return shared.MarshalJSON(runs, true)
	default:
		return RunsToText(runs), nil
	}
}

// RunsToCSV writes one row per run with RFC 3339 timestamps.
func RunsToCSV(runs []models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(runHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			run.ID,
			run.Mode,
			run.StartedAt.Format(time.RFC3339),
			finished(run, time.RFC3339),
			string(run.Status),
			strconv.Itoa(run.Added),
			strconv.Itoa(run.Removed),
			strconv.Itoa(run.Failed),
			run.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RunsToMarkdown renders runs as a table.
func RunsToMarkdown(runs []models.Run) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Run history\n\n")
	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes()
	}

	buf.WriteString("| Started | Mode | Status | Duration | Added | Removed | Failed |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, run := range runs {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %d | %d | %d |\n",
			run.StartedAt.Format(shared.TimeFormat), run.Mode, run.Status, elapsed(run), run.Added, run.Removed, run.Failed)
	}

	for _, run := range runs {
		if run.Error != "" {
			fmt.Fprintf(&buf, "\n**%s**: %s\n", run.ID, run.Error)
		}
	}
	return buf.Bytes()
}

// RunsToText renders one line per run.
func RunsToText(runs []models.Run) []byte {
	var buf bytes.Buffer
	for _, run := range runs {
		fmt.Fprintf(&buf, "%s  %-6s  %-9s  +%d -%d !%d  %s\n",
			run.StartedAt.Format(shared.TimeFormat), run.Mode, run.Status, run.Added, run.Removed, run.Failed, run.ID)
		if run.Error != "" {
			fmt.Fprintf(&buf, "    %s\n", run.Error)
		}
	}
	return buf.Bytes()
}

// ExportLedger renders the pending insertions of ledger in format.
func ExportLedger(ledger models.FailureLedger, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return LedgerToCSV(ledger)
	case FormatMarkdown:
		return LedgerToMarkdown(ledger), nil
	case FormatJSON:
		return shared.MarshalJSON(ledger, true)
	default:
		return LedgerToText(ledger), nil
	}
}

// LedgerToCSV writes one (playlist_id, playlist_name, video_id) row per pending insertion.
func LedgerToCSV(ledger models.FailureLedger) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"playlist_id", "playlist_name", "video_id"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, id := range ledgerIDs(ledger) {
		entry := ledger[id]
		for _, videoID := range entry.Failure {
			if err := writer.Write([]string{id, entry.Name, videoID}); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// LedgerToMarkdown lists pending insertions under one heading per playlist.
func LedgerToMarkdown(ledger models.FailureLedger) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Failure ledger\n\n**Pending**: %d\n", ledger.Pending())

	for _, id := range ledgerIDs(ledger) {
		entry := ledger[id]
		fmt.Fprintf(&buf, "\n## %s (`%s`)\n\n", displayName(entry.Name, id), id)
		for _, videoID := range entry.Failure {
			fmt.Fprintf(&buf, "- [%s](https://www.youtube.com/watch?v=%s)\n", videoID, videoID)
		}
	}
	return buf.Bytes()
}

// LedgerToText lists pending insertions grouped by playlist.
func LedgerToText(ledger models.FailureLedger) []byte {
	var buf bytes.Buffer
	ids := ledgerIDs(ledger)
	if len(ids) == 0 {
		buf.WriteString("Nothing pending.\n")
		return buf.Bytes()
	}

	for _, id := range ids {
		entry := ledger[id]
		fmt.Fprintf(&buf, "%s (%s): %d pending\n", displayName(entry.Name, id), id, len(entry.Failure))
		for _, videoID := range entry.Failure {
			fmt.Fprintf(&buf, "  %s\n", videoID)
		}
	}
	return buf.Bytes()
}

// SummaryToMarkdown renders the report of one pipeline run.
func SummaryToMarkdown(s *tasks.Summary) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Run %s\n\n", s.RunID)
	fmt.Fprintf(&buf, "**Discovered**: %d\n", s.Discovered)
	fmt.Fprintf(&buf, "**Added**: %d\n", s.Added())
	fmt.Fprintf(&buf, "**Removed**: %d\n", s.Removed())
	fmt.Fprintf(&buf, "**Failed**: %d\n", s.Failed())
	fmt.Fprintf(&buf, "**Statistics captured**: %d (%d new rows)\n", s.StatsFilled, s.NewRows)

	if s.Replay != nil && s.Replay.Playlists > 0 {
		fmt.Fprintf(&buf, "\n## Ledger replay\n\n%d replayed, %d still pending across %d playlist(s)\n",
			s.Replay.Replayed, s.Replay.Failed, s.Replay.Playlists)
	}

	if len(s.Routed) > 0 {
		dests := make([]string, 0, len(s.Routed))
		for dest := range s.Routed {
			dests = append(dests, string(dest))
		}
		sort.Strings(dests)

		buf.WriteString("\n## Routing\n\n")
		for _, dest := range dests {
			fmt.Fprintf(&buf, "- %s: %d\n", dest, s.Routed[models.Destination(dest)])
		}
	}

	if len(s.Updates) > 0 {
		buf.WriteString("\n## Playlists\n\n")
		buf.WriteString("| Playlist | Added | Failed | Skipped | Evicted | Archived |\n")
		buf.WriteString("|---|---|---|---|---|---|\n")
		for _, u := range s.Updates {
			fmt.Fprintf(&buf, "| %s | %d | %d | %d | %d | %d |\n",
				displayName(u.Playlist.Name, u.Playlist.ID), u.Added, u.Failed, u.Skipped, u.Evicted, u.Archived)
		}
	}

	if r := s.Radar; r != nil {
		buf.WriteString("\n## Release radar\n\n")
		if r.Skipped != "" {
			fmt.Fprintf(&buf, "Skipped: %s\n", r.Skipped)
		} else {
			fmt.Fprintf(&buf, "%d needed, %d from re-listening, %d from legacy, %d failed\n",
				r.Needed, r.FromRelisten, r.FromLegacy, r.Failed)
		}
	}
	return buf.Bytes()
}

// WriteExport writes data to path, creating parent directories.
func WriteExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ledgerIDs(ledger models.FailureLedger) []string {
	ids := make([]string, 0, len(ledger))
	for id, entry := range ledger {
		if len(entry.Failure) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func finished(run models.Run, layout string) string {
	if run.FinishedAt == nil {
		return ""
	}
	return run.FinishedAt.Format(layout)
}

func elapsed(run models.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
