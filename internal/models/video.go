package models

import "time"

// LiveStatus mirrors the liveBroadcastContent field of a video snippet.
type LiveStatus string

const (
	LiveNone     LiveStatus = "none"
	LiveActive   LiveStatus = "live"
	LiveUpcoming LiveStatus = "upcoming"
)

// Privacy is the visibility status of a video or playlist item.
//
// [PrivacyDeleted] never comes from the API; it marks ids missing from a statistics response.
type Privacy string

const (
	PrivacyPublic      Privacy = "public"
	PrivacyPrivate     Privacy = "private"
	PrivacyUnlisted    Privacy = "unlisted"
	PrivacyUnspecified Privacy = "privacyStatusUnspecified"
	PrivacyDeleted     Privacy = "deleted"
)

// Stats holds public counters. A nil counter is unknown: hidden, or the video is gone.
type Stats struct {
	Views    *int64 `json:"views"`
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
}

// Video is an uploaded video enriched with statistics.
type Video struct {
	ID          string        `json:"video_id"`
	ChannelID   string        `json:"channel_id"`
	ChannelName string        `json:"channel_name"`
	Title       string        `json:"video_title"`
	ReleaseDate time.Time     `json:"release_date"`
	Duration    time.Duration `json:"duration"`
	IsShorts    bool          `json:"is_shorts"`
	LiveStatus  LiveStatus    `json:"live_status"`
	Status      Privacy       `json:"status"`
	Stats       Stats         `json:"stats"`
}

// Deleted reports whether the video was absent from the statistics response.
func (v Video) Deleted() bool {
	return v.Status == PrivacyDeleted
}

// MissingVideo is the placeholder for an id the API did not return.
func MissingVideo(id string) Video {
	return Video{ID: id, Status: PrivacyDeleted}
}

// PlaylistItem is a membership record. ItemID identifies the membership, VideoID the video.
type PlaylistItem struct {
	ItemID      string    `json:"item_id"`
	PlaylistID  string    `json:"playlist_id"`
	VideoID     string    `json:"video_id"`
	Position    int64     `json:"position"`
	Title       string    `json:"video_title"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	ReleaseDate time.Time `json:"release_date"`
	AddedAt     time.Time `json:"added_at"`
	Status      Privacy   `json:"status"`
}

// Channel is a YouTube channel. Subscribers is nil when hidden by the owner.
type Channel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subscribers *int64 `json:"subscribers"`
}

// ArchivedVideo is a video evicted from a general playlist, kept for later analysis.
type ArchivedVideo struct {
	Item        PlaylistItem
	Video       Video
	Subscribers *int64
	EvictedAt   time.Time
}

// UploadsPlaylistID derives the uploads playlist of a channel from its id ("UC..." becomes "UU...").
func UploadsPlaylistID(channelID string) string {
	if len(channelID) < 2 {
		return channelID
	}
	return "UU" + channelID[2:]
}

// ChannelIDFromUploads reverses [UploadsPlaylistID].
func ChannelIDFromUploads(playlistID string) string {
	if len(playlistID) < 2 {
		return playlistID
	}
	return "UC" + playlistID[2:]
}
