// Package id3 renders ID3v2 tags for podcast episodes: artist, title, track
// number, a top-level ordered table of contents and one CHAP frame per
// chapter. Apply replaces the leading tag of an MP3 in memory.
package id3
