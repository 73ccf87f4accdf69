// YouTube Data API v3 client
//
// Converts API resources into typed records at the boundary. Missing optional fields stay
// explicit: counters become nil, unparsable dates stay zero.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
	"github.com/sosodev/duration"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// MaxBatch is the largest id list accepted by videos.list and channels.list, and the largest page.
	MaxBatch = 50

	defaultShortsBaseURL = "https://www.youtube.com/shorts/"
)

var (
	playlistItemParts = []string{"snippet", "contentDetails", "status"}
	videoParts        = []string{"snippet", "contentDetails", "statistics", "status"}
	channelParts      = []string{"snippet", "statistics"}
)

// YouTubeOpts configures a [YouTubeService].
type YouTubeOpts struct {
	HTTPClient    *http.Client // Authorized client used for Data API calls
	ShortsClient  *http.Client // Client for the shorts probe; must not follow redirects
	Endpoint      string       // Data API base URL override
	ShortsBaseURL string       // Prefix for the shorts probe, followed by the video id
	PageSize      int64
}

// YouTubeService performs the Data API calls the curator needs.
type YouTubeService struct {
	svc           *youtube.Service
	client        *http.Client
	shorts        *http.Client
	shortsBaseURL string
	pageSize      int64
}

// NewYouTubeService builds a client on top of an already authorized HTTP client.
func NewYouTubeService(ctx context.Context, opts YouTubeOpts) (*YouTubeService, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ShortsClient == nil {
		opts.ShortsClient = NoRedirectClient(nil)
	}
	if opts.ShortsBaseURL == "" {
		opts.ShortsBaseURL = defaultShortsBaseURL
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxBatch {
		opts.PageSize = MaxBatch
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(opts.HTTPClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubeService{
		svc:           svc,
		client:        opts.HTTPClient,
		shorts:        opts.ShortsClient,
		shortsBaseURL: opts.ShortsBaseURL,
		pageSize:      opts.PageSize,
	}, nil
}

// NoRedirectClient copies base (or a zero client) and stops it from following redirects.
//
// youtube.com answers a shorts URL for a regular video with a redirect to /watch.
func NoRedirectClient(base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

// PlaylistPages walks a playlist page by page, in API order, until fn returns false or pages run out.
func (y *YouTubeService) PlaylistPages(ctx context.Context, playlistID string, fn func([]models.PlaylistItem) bool) error {
	pageToken := ""
	for {
		call := y.svc.PlaylistItems.List(playlistItemParts).
			PlaylistId(playlistID).
			MaxResults(y.pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return wrap("playlistItems.list "+playlistID, err)
		}

		items := make([]models.PlaylistItem, 0, len(resp.Items))
		for _, item := range resp.Items {
			items = append(items, toPlaylistItem(item))
		}

		if !fn(items) || resp.NextPageToken == "" {
			return nil
		}
		pageToken = resp.NextPageToken
	}
}

// PlaylistItems returns the full membership of a playlist.
func (y *YouTubeService) PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	var all []models.PlaylistItem
	err := y.PlaylistPages(ctx, playlistID, func(items []models.PlaylistItem) bool {
		all = append(all, items...)
		return true
	})
	return all, err
}

// Videos fetches one batch of at most [MaxBatch] videos. Ids unknown to the API are absent from the result.
func (y *YouTubeService) Videos(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatch {
		return nil, fmt.Errorf("videos.list accepts at most %d ids, got %d", MaxBatch, len(ids))
	}

	resp, counters, err := y.listVideos(ctx, ids)
	if err != nil {
		return nil, wrap("videos.list", err)
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for i, item := range resp.Items {
		v := toVideo(item, counters.Items[i].Statistics)
		if v.IsShorts, err = y.IsShorts(ctx, v.ID); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// videoCounters mirrors the statistics of a videos.list body with absent counters kept nil.
//
// The generated client decodes a hidden like or comment count as zero.
type videoCounters struct {
	Items []struct {
		Statistics *videoStatistics `json:"statistics"`
	} `json:"items"`
}

type videoStatistics struct {
	ViewCount    *string `json:"viewCount"`
	LikeCount    *string `json:"likeCount"`
	CommentCount *string `json:"commentCount"`
}

// listVideos performs videos.list and decodes the body twice: as the generated resource and as
// [videoCounters].
func (y *YouTubeService) listVideos(ctx context.Context, ids []string) (*youtube.VideoListResponse, *videoCounters, error) {
	params := url.Values{
		"part":        {strings.Join(videoParts, ",")},
		"id":          ids,
		"maxResults":  {strconv.Itoa(MaxBatch)},
		"alt":         {"json"},
		"prettyPrint": {"false"},
	}
	endpoint := googleapi.ResolveRelative(y.svc.BasePath, "youtube/v3/videos") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	res, err := y.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	if err := googleapi.CheckResponse(res); err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, err
	}

	var resp youtube.VideoListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode videos: %w", err)
	}
	var counters videoCounters
	if err := json.Unmarshal(body, &counters); err != nil {
		return nil, nil, fmt.Errorf("failed to decode video statistics: %w", err)
	}
	if len(counters.Items) != len(resp.Items) {
		return nil, nil, fmt.Errorf("videos.list decoded %d items and %d statistics", len(resp.Items), len(counters.Items))
	}
	return &resp, &counters, nil
}

// Channels fetches one batch of at most [MaxBatch] channels.
func (y *YouTubeService) Channels(ctx context.Context, ids []string) ([]models.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatch {
		return nil, fmt.Errorf("channels.list accepts at most %d ids, got %d", MaxBatch, len(ids))
	}

	resp, err := y.svc.Channels.List(channelParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, wrap("channels.list", err)
	}

	channels := make([]models.Channel, 0, len(resp.Items))
	for _, item := range resp.Items {
		ch := models.Channel{ID: item.Id}
		if item.Snippet != nil {
			ch.Title = item.Snippet.Title
		}
		if item.Statistics != nil && !item.Statistics.HiddenSubscriberCount {
			subs := int64(item.Statistics.SubscriberCount)
			ch.Subscribers = &subs
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// InsertItem appends a video to a playlist.
func (y *YouTubeService) InsertItem(ctx context.Context, playlistID, videoID string) error {
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}
	_, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	return wrap("playlistItems.insert "+videoID, err)
}

// DeleteItem removes a membership record.
func (y *YouTubeService) DeleteItem(ctx context.Context, itemID string) error {
	return wrap("playlistItems.delete "+itemID, y.svc.PlaylistItems.Delete(itemID).Context(ctx).Do())
}

// IsShorts probes the shorts URL of a video: a 200 means the video is a short.
func (y *YouTubeService) IsShorts(ctx context.Context, videoID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, y.shortsBaseURL+videoID, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build shorts probe: %w", err)
	}

	resp, err := y.shorts.Do(req)
	if err != nil {
		return false, &APIError{Outcome: Fatal, Op: "shorts probe " + videoID, Err: err}
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

func toPlaylistItem(item *youtube.PlaylistItem) models.PlaylistItem {
	p := models.PlaylistItem{ItemID: item.Id}
	if s := item.Snippet; s != nil {
		p.PlaylistID = s.PlaylistId
		p.Position = s.Position
		p.Title = s.Title
		p.ChannelID = s.VideoOwnerChannelId
		p.ChannelName = s.VideoOwnerChannelTitle
		p.AddedAt = parseTime(s.PublishedAt)
		if s.ResourceId != nil {
			p.VideoID = s.ResourceId.VideoId
		}
	}
	if cd := item.ContentDetails; cd != nil {
		if cd.VideoId != "" {
			p.VideoID = cd.VideoId
		}
		p.ReleaseDate = parseTime(cd.VideoPublishedAt)
	}
	if item.Status != nil {
		p.Status = models.Privacy(item.Status.PrivacyStatus)
	}
	return p
}

func toVideo(item *youtube.Video, counters *videoStatistics) models.Video {
	v := models.Video{ID: item.Id, LiveStatus: models.LiveNone}
	if s := item.Snippet; s != nil {
		v.ChannelID = s.ChannelId
		v.ChannelName = s.ChannelTitle
		v.Title = s.Title
		v.ReleaseDate = parseTime(s.PublishedAt)
		if s.LiveBroadcastContent != "" {
			v.LiveStatus = models.LiveStatus(s.LiveBroadcastContent)
		}
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = parseDuration(cd.Duration)
	}
	if counters != nil {
		v.Stats = models.Stats{
			Views:    parseCount(counters.ViewCount),
			Likes:    parseCount(counters.LikeCount),
			Comments: parseCount(counters.CommentCount),
		}
	}
	if item.Status != nil {
		v.Status = models.Privacy(item.Status.PrivacyStatus)
	}
	return v
}

// parseCount reads a counter rendered as a decimal string. Absent or malformed counters are nil.
func parseCount(s *string) *int64 {
	if s == nil {
		return nil
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseDuration reads an ISO-8601 duration ("PT4M13S"). Empty or malformed values count as zero.
func parseDuration(iso string) time.Duration {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return 0
	}
	d, err := duration.Parse(iso)
	if err != nil {
		return 0
	}
	return d.ToTimeDuration()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
