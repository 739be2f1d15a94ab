// Package main hosts the Chapters CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the pipeline
// library: reading WAV markers, encoding through LAME, tagging and writing
// MP3s, browsing the episode history and packaging the release bundle. It
// centralizes configuration resolution and logger setup so subcommands only
// handle presentation.
package main
