// Package bundle packages the application into a distributable directory
// named after the artifact.
//
// A Manifest fixes the build: clean, log level, confirmation and windowing
// flags, the artifact name, the encoder binary shipped under lib/ and the
// license files copied to the bundle root. Args renders it as a bundler flag
// list; Builder executes it with the Go toolchain, copies the embeds with
// checksum verification and holds a lock on the dist directory while doing
// so. Verify checks a finished bundle.
package bundle
