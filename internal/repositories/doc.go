// Package repositories persists curator state.
//
// Working state lives in flat files so it can be committed next to the workflow that runs the
// curator: JSON for channel groups, playlists, allow-lists and the failure ledger, CSV for the
// historical statistics and the eviction archive. Flat files are rewritten atomically.
//
// Run history lives in SQLite:
//   - [RunRepository] : one row per pipeline execution plus the ledger events it produced
package repositories
