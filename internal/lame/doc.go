// Package lame drives the LAME MP3 encoder binary.
//
// The Client runs the encoder through an Executor so tests can substitute a
// stub, parses the "( NN%)" status line into progress callbacks and tags
// failures with the services error markers. ResolveBinary locates the
// encoder using the same lib/ layout the bundle produces.
package lame
