package models

import "slices"

// Playlist roles, as keyed in the playlists file.
const (
	RoleRelease     = "release"
	RoleBanger      = "banger"
	RoleWatchLater  = "watch_later"
	RoleReListening = "re_listening"
	RoleLegacy      = "legacy"
	RoleLivestream  = "livestream"
	RoleShorts      = "shorts"
)

// Destination is the outcome of classifying a discovered video.
type Destination string

const (
	DestShorts     Destination = "shorts"
	DestNone       Destination = "none"
	DestRelease    Destination = RoleRelease
	DestBanger     Destination = RoleBanger
	DestWatchLater Destination = RoleWatchLater
)

// PlaylistRef names a playlist bound to a role.
type PlaylistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playlists maps a role to its playlist.
type Playlists map[string]PlaylistRef

// Lookup returns the playlist bound to role.
func (p Playlists) Lookup(role string) (PlaylistRef, bool) {
	ref, ok := p[role]
	return ref, ok && ref.ID != ""
}

// ChannelGroups maps a category name to its channel ids.
type ChannelGroups map[string][]string

// Union returns the distinct channel ids of the given categories, in first-seen order.
func (g ChannelGroups) Union(categories ...string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, category := range categories {
		for _, id := range g[category] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// AddOn holds the curated allow-lists that tune discovery and classification.
type AddOn struct {
	Favorites            map[string]string `json:"favorites"`
	ToPass               []string          `json:"toPass"`
	PlaylistNotFoundPass []string          `json:"playlistNotFoundPass"`
}

// IsFavorite reports whether channelID is a favorite channel.
func (a AddOn) IsFavorite(channelID string) bool {
	for _, id := range a.Favorites {
		if id == channelID {
			return true
		}
	}
	return false
}

// Skips reports whether discovery ignores channelID.
func (a AddOn) Skips(channelID string) bool {
	return slices.Contains(a.ToPass, channelID)
}

// ExpectsMissing reports whether a missing uploads playlist for channelID is known and silent.
func (a AddOn) ExpectsMissing(channelID string) bool {
	return slices.Contains(a.PlaylistNotFoundPass, channelID)
}
