package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/desertthunder/ytcurate/internal/shared"
)

// LoadChannelGroups reads the category → channel ids file.
func LoadChannelGroups(path string) (models.ChannelGroups, error) {
	var groups models.ChannelGroups
	if err := readJSON(path, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// SaveChannelGroups rewrites the category → channel ids file.
func SaveChannelGroups(path string, groups models.ChannelGroups) error {
	return writeJSON(path, groups)
}

// LoadPlaylists reads the role → playlist file.
func LoadPlaylists(path string) (models.Playlists, error) {
	var playlists models.Playlists
	if err := readJSON(path, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// LoadAddOn reads the favorites and channel allow-lists.
func LoadAddOn(path string) (models.AddOn, error) {
	var addOn models.AddOn
	err := readJSON(path, &addOn)
	return addOn, err
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStateFile, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrStateFile, path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("%w: %s: %v", shared.ErrStateFile, path, err)
		}
		return nil
	})
}

// LedgerStore persists the failure ledger as JSON.
type LedgerStore struct {
	path string
}

// NewLedgerStore creates a store backed by the file at path.
func NewLedgerStore(path string) *LedgerStore {
	return &LedgerStore{path: path}
}

// Load reads the ledger. A missing file is an empty ledger.
func (s *LedgerStore) Load() (models.FailureLedger, error) {
	ledger := models.FailureLedger{}
	if err := readJSON(s.path, &ledger); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.FailureLedger{}, nil
		}
		return nil, err
	}
	for id, entry := range ledger {
		if entry.Failure == nil {
			entry.Failure = []string{}
			ledger[id] = entry
		}
	}
	return ledger, nil
}

// Save rewrites the ledger.
func (s *LedgerStore) Save(ledger models.FailureLedger) error {
	return writeJSON(s.path, ledger)
}
