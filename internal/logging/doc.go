// Package logging assembles structured slog loggers and formatting helpers used
// across Chapters.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with
// run IDs, stages and source files. ProgressSampler keeps encoder and writer
// progress from flooding non-interactive logs.
package logging
