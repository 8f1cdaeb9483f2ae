// Package tasks runs long band API operations with real-time progress reporting.
//
// # Core Operations
//
// [Exporter] provides two operations:
//
//  1. [Exporter.BulkExport] : Export many bands to disk
//     - A rate limited producer feeds band IDs to a bounded worker pool
//     - Each worker fetches the band, its events and songs (and lyrics for markdown)
//     - Files are written in json, csv, markdown or txt via the formatter package
//     - An export_manifest.json summarizes successes and failures
//
//  2. [Exporter.Snapshot] : Fetch the user's profile, bands and feed
//     - Returns decoded JSON for backup or inspection
//     - Failed endpoints are collected rather than aborting the run
//
// Every request goes through the shared gateway, so concurrent workers that
// meet an expired access token wait on a single token refresh.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// [ProgressUpdate] carries a phase, step counters and a message. Updates use
// select with default, so a slow reader never stalls an export.
//
// # Run History
//
// The optional [RunRecorder] stores a summary of each bulk export
// (repositories.ExportRunRepository). Recording errors are logged and ignored.
package tasks
