package chapters

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Chapter is a named span of audio. Start and End are milliseconds from the
// beginning of the recording.
type Chapter struct {
	Start int
	End   int
	Name  string
}

// Duration returns the chapter length in milliseconds.
func (c Chapter) Duration() int {
	if c.End < c.Start {
		return 0
	}
	return c.End - c.Start
}

// MetaData holds the tag values written to an episode. Zero values are unset
// and produce no frame.
type MetaData struct {
	PodcastTitle  string
	EpisodeTitle  string
	EpisodeNumber int
	Chapters      []Chapter
}

// Empty reports whether no field is set.
func (m MetaData) Empty() bool {
	return m.PodcastTitle == "" && m.EpisodeTitle == "" && m.EpisodeNumber == 0 && len(m.Chapters) == 0
}

// Merge returns m with every unset field filled from fallback.
func (m MetaData) Merge(fallback MetaData) MetaData {
	out := m
	if out.PodcastTitle == "" {
		out.PodcastTitle = fallback.PodcastTitle
	}
	if out.EpisodeTitle == "" {
		out.EpisodeTitle = fallback.EpisodeTitle
	}
	if out.EpisodeNumber == 0 {
		out.EpisodeNumber = fallback.EpisodeNumber
	}
	if len(out.Chapters) == 0 && len(fallback.Chapters) > 0 {
		out.Chapters = append([]Chapter(nil), fallback.Chapters...)
	}
	return out
}

var episodePattern = regexp.MustCompile(`([0-9]{1,3}) *- *(.*)`)

// GuessPodcastInfo derives the episode number and title from a file name such
// as "42 - The Answer.wav". Names that do not match yield an empty MetaData.
func GuessPodcastInfo(path string) MetaData {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	match := episodePattern.FindStringSubmatch(base)
	if match == nil {
		return MetaData{}
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return MetaData{}
	}
	return MetaData{EpisodeNumber: number, EpisodeTitle: match[2]}
}
