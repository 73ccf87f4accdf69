// Package models defines the typed records the curator works with.
//
// API responses are converted into these records at the service boundary:
//   - [Video] : a video with its statistics, duration, live status and visibility
//   - [PlaylistItem] : a playlist membership record, distinct from the video it points at
//   - [Channel] : channel identity and subscriber count
//
// Records that survive across runs:
//   - [HistoricalStatsRow] : per-video statistics captured at fixed week offsets
//   - [FailureLedger] : playlist insertions awaiting replay
//   - [ArchivedVideo] : videos evicted from general playlists
//   - [Run] : one execution of the pipeline
//
// Absent API fields are explicit: nullable counters are pointers and a video missing from a
// statistics response carries [PrivacyDeleted].
package models
