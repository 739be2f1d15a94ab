// Package pipeline is the library facade over chapter reading, encoding,
// tagging and writing.
//
// Each operation reports to a Listener and has a Start variant that runs on
// a goroutine and returns a channel carrying its error. Process chains them:
// the file name guess and history suggestion produce the metadata, chapter
// reading and encoding run concurrently, then the tagged MP3 is written and
// recorded.
package pipeline
