// Package config loads, normalizes, and validates Chapters configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CHAPTERS_LAME_PATH. The Config type centralizes every knob the CLI needs:
// encoder settings, ID3 defaults, the history store and the packaging
// manifest used by `chapters bundle`.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
