// Package logs reads the chapters.log file written by the CLI so past runs
// can be inspected, optionally narrowed to one run ID.
package logs
