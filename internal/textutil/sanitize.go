package textutil

import (
	"fmt"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Trailing dots are dropped because Windows strips
// them silently.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	return strings.TrimRight(name, ". ")
}

// EpisodeFileName renders "<NNN> - <title>" for an episode, or just the title
// when number is zero. Numbers below 1000 read back through the file name
// guess.
// Returns "" when title sanitizes to nothing.
func EpisodeFileName(number int, title string) string {
	title = SanitizeFileName(title)
	if title == "" {
		return ""
	}
	if number <= 0 {
		return title
	}
	return fmt.Sprintf("%03d - %s", number, title)
}
