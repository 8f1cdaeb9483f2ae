// Package ui styles the CLI's terminal output with lipgloss.
//
// A [Painter] colors status marks, banners and hints. [Default] is the shared
// palette; [Plain] renders text unchanged and is what tests and `--no-color` use.
//
// [Table] lays out bands, events and songs in bordered columns; headers are bold,
// and an empty listing prints "(none)".
package ui
