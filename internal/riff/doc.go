// Package riff reads cue points and their labels from WAV files and turns
// them into chapters.
//
// Only the chunks that matter for chapters are decoded: fmt, data (for its
// length), cue and the labl entries of an adtl LIST. Everything else is
// skipped, honouring RIFF word padding.
package riff
