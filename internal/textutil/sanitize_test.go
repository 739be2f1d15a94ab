package textutil_test

import (
	"testing"

	"chapters/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"  Pilot  ":           "Pilot",
		"AC/DC: Live?":        "AC-DC- Live",
		`Why "this" <works>`: "Why this works",
		"Ends with dots...":   "Ends with dots",
		"":                    "",
	}
	for in, want := range cases {
		if got := textutil.SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEpisodeFileName(t *testing.T) {
	if got := textutil.EpisodeFileName(7, "Cold Open"); got != "007 - Cold Open" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := textutil.EpisodeFileName(1234, "Long Run"); got != "1234 - Long Run" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := textutil.EpisodeFileName(0, "Bonus"); got != "Bonus" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := textutil.EpisodeFileName(3, " ?? "); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
}
