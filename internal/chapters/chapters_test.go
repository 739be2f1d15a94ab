package chapters_test

import (
	"testing"

	"chapters/internal/chapters"
)

func TestGuessPodcastInfo(t *testing.T) {
	cases := []struct {
		path   string
		number int
		title  string
	}{
		{"/recordings/42 - The Answer.wav", 42, "The Answer"},
		{"7-Short.wav", 7, "Short"},
		{"Show 101   -   Long Gap.wav", 101, "Long Gap"},
		{"1234 - Too Many.wav", 234, "Too Many"},
		{"no number here.wav", 0, ""},
		{"12 Missing Dash.wav", 0, ""},
	}
	for _, tc := range cases {
		got := chapters.GuessPodcastInfo(tc.path)
		if got.EpisodeNumber != tc.number || got.EpisodeTitle != tc.title {
			t.Fatalf("GuessPodcastInfo(%q) = %+v, want %d/%q", tc.path, got, tc.number, tc.title)
		}
		if got.PodcastTitle != "" || got.Chapters != nil {
			t.Fatalf("expected only episode fields, got %+v", got)
		}
	}
}

func TestMetaDataMerge(t *testing.T) {
	base := chapters.MetaData{EpisodeTitle: "Override"}
	fallback := chapters.MetaData{
		PodcastTitle:  "Show",
		EpisodeTitle:  "Guessed",
		EpisodeNumber: 3,
		Chapters:      []chapters.Chapter{{Start: 0, End: 10, Name: "Intro"}},
	}
	got := base.Merge(fallback)
	if got.EpisodeTitle != "Override" || got.PodcastTitle != "Show" || got.EpisodeNumber != 3 {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if len(got.Chapters) != 1 {
		t.Fatalf("expected chapters to be copied, got %+v", got.Chapters)
	}
	if !(chapters.MetaData{}).Empty() {
		t.Fatal("zero MetaData should be empty")
	}
}

func TestChapterDuration(t *testing.T) {
	if d := (chapters.Chapter{Start: 1000, End: 2500}).Duration(); d != 1500 {
		t.Fatalf("duration = %d", d)
	}
	if d := (chapters.Chapter{Start: 10, End: 5}).Duration(); d != 0 {
		t.Fatalf("inverted chapter duration = %d", d)
	}
}
