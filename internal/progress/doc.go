// Package progress carries run, store and image milestones from the scanner
// to pluggable sinks. Emitting never blocks the pipeline; events are batched
// on a background goroutine.
package progress
