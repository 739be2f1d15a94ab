// Package history records processed episodes in a SQLite database so later
// runs can list past output and suggest the next episode number for a
// podcast.
package history
