// Package chapters holds the domain types shared by the reader, encoder and
// tagger: chapters, episode metadata and the application version.
package chapters
