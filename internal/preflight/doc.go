// Package preflight provides readiness checks for the filesystem paths and
// external tools that Chapters depends on.
//
// The encode command calls RunAll before touching any audio so that an
// unwritable output directory fails fast instead of after a long LAME run.
// The status command renders the same results next to the dependency table.
package preflight
