// Package tasks runs the curation pipeline with real-time progress reporting.
//
// # Core Operations
//
// [Curator] exposes one method per pipeline step. [Curator.Run] chains them:
//
//  1. [Curator.ReplayLedger] : retry insertions that failed on a previous run
//  2. [Curator.Discover] : list uploads of every tracked channel inside a [Window]
//     - the window is either the days before now or the time since the last run, rounded to the hour
//     - a missing uploads playlist is a warning, any other API error aborts
//  3. [Curator.Enrich] : fetch statistics in batches of 50, one record per requested id
//  4. [Curator.AllWeeklyStats] : fill the week-offset statistics of the historical table
//  5. [Classifier.Destination] : route each new video to banger, release, watch later, shorts or nowhere
//  6. [Curator.UpdatePlaylist] : evict stale members, then add qualifying candidates
//  7. [Curator.FillRadar] : top the release playlist up from the re-listening and legacy queues
//
// [Curator.SortChannels] is a maintenance step outside the pipeline.
//
// # Run Context
//
// Every step takes a [RunContext] holding the reference time, run id and logger. Nothing in the
// package reads the clock or a global logger.
//
// # Failures
//
// Insertions that fail are logged, recorded in the failure ledger and replayed by the next run.
// Deletions that fail are logged only. Discovery and statistics errors abort the run. A quota
// error during the radar refill skips the refill.
//
// # Progress Reporting
//
// [ProgressUpdate] values are sent on [RunContext.Progress] with select and default, so a slow
// or absent reader never blocks the pipeline.
package tasks
