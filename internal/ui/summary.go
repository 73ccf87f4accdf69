package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/tasks"
)

// RenderSummary formats the outcome of a pipeline run for the terminal.
func RenderSummary(s *tasks.Summary) string {
	var b strings.Builder

	header := styles.ok.Render("✓ Run complete")
	if s.Failed() > 0 {
		header = styles.warn.Render(fmt.Sprintf("⚠ Run complete, %d addition(s) ledgered", s.Failed()))
	}
	b.WriteString(header + "\n\n")

	row := func(label string, value any) {
		fmt.Fprintf(&b, "%s%v\n", styles.label.Render(label), value)
	}
	row("Run", s.RunID)
	row("Discovered", s.Discovered)
	row("Added", s.Added())
	row("Removed", s.Removed())
	row("Statistics captured", fmt.Sprintf("%d (%d new rows)", s.StatsFilled, s.NewRows))

	if s.Replay != nil && s.Replay.Playlists > 0 {
		row("Ledger replay", fmt.Sprintf("%d replayed, %d pending", s.Replay.Replayed, s.Replay.Failed))
	}

	if len(s.Routed) > 0 {
		dests := make([]string, 0, len(s.Routed))
		for dest := range s.Routed {
			dests = append(dests, string(dest))
		}
		sort.Strings(dests)

		parts := make([]string, len(dests))
		for i, dest := range dests {
			parts[i] = fmt.Sprintf("%s %d", dest, s.Routed[models.Destination(dest)])
		}
		row("Routing", strings.Join(parts, " • "))
	}

	if r := s.Radar; r != nil {
		if r.Skipped != "" {
			row("Release radar", styles.warn.Render("skipped: "+r.Skipped))
		} else {
			row("Release radar", fmt.Sprintf("+%d (%d re-listening, %d legacy)", r.Added(), r.FromRelisten, r.FromLegacy))
		}
	}
	return b.String()
}
