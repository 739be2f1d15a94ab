// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which maps
//     those markers onto CLI exit statuses.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across commands.
package services
