// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/ytcurate/internal/models"
	"google.golang.org/api/googleapi"
)

// Insertion is one recorded playlist insert.
type Insertion struct {
	PlaylistID string
	VideoID    string
}

// FakeYouTube is an in-memory stand-in for the YouTube Data API client.
//
// Playlists are kept in API order. Errors are keyed by operation: "list:<playlist>",
// "insert:<playlist>:<video>", "delete:<item>", "videos" and "channels".
type FakeYouTube struct {
	mu sync.Mutex

	Playlists map[string][]models.PlaylistItem
	VideoDB   map[string]models.Video
	ChannelDB map[string]models.Channel
	Errors    map[string]error
	PageSize  int

	VideoCalls   [][]string
	ChannelCalls [][]string
	PagesServed  map[string]int
	Inserted     []Insertion
	Deleted      []string

	nextItem int
}

// NewFakeYouTube creates an empty fake with a page size of 50.
func NewFakeYouTube() *FakeYouTube {
	return &FakeYouTube{
		Playlists:   map[string][]models.PlaylistItem{},
		VideoDB:     map[string]models.Video{},
		ChannelDB:   map[string]models.Channel{},
		Errors:      map[string]error{},
		PageSize:    50,
		PagesServed: map[string]int{},
	}
}

// CreatePlaylist registers an empty playlist so that listing it is not a 404.
func (f *FakeYouTube) CreatePlaylist(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.Playlists[id]; !ok {
			f.Playlists[id] = []models.PlaylistItem{}
		}
	}
}

// AddItems appends items to a playlist, assigning item ids when missing.
func (f *FakeYouTube) AddItems(playlistID string, items ...models.PlaylistItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		if item.ItemID == "" {
			f.nextItem++
			item.ItemID = fmt.Sprintf("item-%d", f.nextItem)
		}
		item.PlaylistID = playlistID
		f.Playlists[playlistID] = append(f.Playlists[playlistID], item)
	}
}

// AddVideos registers videos returned by [FakeYouTube.Videos].
func (f *FakeYouTube) AddVideos(videos ...models.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range videos {
		f.VideoDB[v.ID] = v
	}
}

// AddChannels registers channels returned by [FakeYouTube.Channels].
func (f *FakeYouTube) AddChannels(channels ...models.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range channels {
		f.ChannelDB[ch.ID] = ch
	}
}

// PlaylistPages serves a playlist in pages of PageSize. Unknown playlists are a 404.
func (f *FakeYouTube) PlaylistPages(ctx context.Context, playlistID string, fn func([]models.PlaylistItem) bool) error {
	f.mu.Lock()
	if err := f.Errors["list:"+playlistID]; err != nil {
		f.mu.Unlock()
		return err
	}
	items, ok := f.Playlists[playlistID]
	if !ok {
		f.mu.Unlock()
		return NotFoundError()
	}
	items = slices.Clone(items)
	size := max(f.PageSize, 1)
	f.mu.Unlock()

	for start := 0; start < len(items) || start == 0; start += size {
		end := min(start+size, len(items))
		f.mu.Lock()
		f.PagesServed[playlistID]++
		f.mu.Unlock()
		if !fn(items[start:end]) || end >= len(items) {
			return nil
		}
	}
	return nil
}

// PlaylistItems returns the full membership of a playlist.
func (f *FakeYouTube) PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	var all []models.PlaylistItem
	err := f.PlaylistPages(ctx, playlistID, func(items []models.PlaylistItem) bool {
		all = append(all, items...)
		return true
	})
	return all, err
}

// Videos returns the registered videos among ids, in request order.
func (f *FakeYouTube) Videos(ctx context.Context, ids []string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.VideoCalls = append(f.VideoCalls, slices.Clone(ids))
	if err := f.Errors["videos"]; err != nil {
		return nil, err
	}
	if len(ids) > 50 {
		return nil, fmt.Errorf("videos.list accepts at most 50 ids, got %d", len(ids))
	}

	var out []models.Video
	for _, id := range ids {
		if v, ok := f.VideoDB[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Channels returns the registered channels among ids.
func (f *FakeYouTube) Channels(ctx context.Context, ids []string) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ChannelCalls = append(f.ChannelCalls, slices.Clone(ids))
	if err := f.Errors["channels"]; err != nil {
		return nil, err
	}

	var out []models.Channel
	for _, id := range ids {
		if ch, ok := f.ChannelDB[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// InsertItem appends the video at the end of the playlist.
func (f *FakeYouTube) InsertItem(ctx context.Context, playlistID, videoID string) error {
	f.mu.Lock()
	err := f.Errors["insert:"+playlistID+":"+videoID]
	if err == nil {
		err = f.Errors["insert:"+playlistID]
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.AddItems(playlistID, models.PlaylistItem{VideoID: videoID, Status: models.PrivacyPublic})
	f.mu.Lock()
	f.Inserted = append(f.Inserted, Insertion{PlaylistID: playlistID, VideoID: videoID})
	f.mu.Unlock()
	return nil
}

// DeleteItem removes a membership record from whichever playlist holds it.
func (f *FakeYouTube) DeleteItem(ctx context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errors["delete:"+itemID]; err != nil {
		return err
	}
	for id, items := range f.Playlists {
		for i, item := range items {
			if item.ItemID == itemID {
				f.Playlists[id] = slices.Delete(items, i, i+1)
				f.Deleted = append(f.Deleted, itemID)
				return nil
			}
		}
	}
	return NotFoundError()
}

// InsertedInto lists the video ids inserted into playlistID, in order.
func (f *FakeYouTube) InsertedInto(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, ins := range f.Inserted {
		if ins.PlaylistID == playlistID {
			ids = append(ids, ins.VideoID)
		}
	}
	return ids
}

// VideoIDs lists the videos currently in playlistID, in order.
func (f *FakeYouTube) VideoIDs(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, item := range f.Playlists[playlistID] {
		ids = append(ids, item.VideoID)
	}
	return ids
}

// NotFoundError is the error the API client reports for a 404.
func NotFoundError() error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "playlistNotFound"}
}

// QuotaError is the error the API client reports when the daily quota is spent.
func QuotaError() error {
	return &googleapi.Error{
		Code:    http.StatusForbidden,
		Message: "quota exceeded",
		Errors:  []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
	}
}

// ServerError is an unclassified API failure.
func ServerError() error {
	return &googleapi.Error{Code: http.StatusInternalServerError, Message: "backend error"}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
