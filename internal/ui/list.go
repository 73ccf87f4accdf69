package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytcurate/internal/tasks"
)

var _ list.Item = updateItem{}

// updateItem wraps [tasks.UpdateResult] to implement [list.Item].
type updateItem struct {
	update *tasks.UpdateResult
}

func (i updateItem) FilterValue() string { return i.update.Playlist.Name }

func (i updateItem) Title() string {
	if i.update.Playlist.Name == "" {
		return i.update.Playlist.ID
	}
	return i.update.Playlist.Name
}

func (i updateItem) Description() string {
	u := i.update
	desc := fmt.Sprintf("+%d added • -%d evicted", u.Added, u.Evicted)
	if u.Failed > 0 {
		desc = fmt.Sprintf("%s • %d ledgered", desc, u.Failed)
	}
	if u.Skipped > 0 {
		desc = fmt.Sprintf("%s • %d skipped", desc, u.Skipped)
	}
	return desc
}

func updateItems(s *tasks.Summary) []list.Item {
	if s == nil {
		return nil
	}
	items := make([]list.Item, len(s.Updates))
	for i, u := range s.Updates {
		items[i] = updateItem{update: u}
	}
	return items
}
