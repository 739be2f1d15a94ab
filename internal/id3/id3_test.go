package id3_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bogem/id3v2/v2"

	"chapters/internal/chapters"
	"chapters/internal/id3"
	"chapters/internal/services"
)

var sampleMeta = chapters.MetaData{
	PodcastTitle:  "Weekly Show",
	EpisodeTitle:  "Pilot",
	EpisodeNumber: 12,
	Chapters: []chapters.Chapter{
		{Start: 0, End: 1500, Name: "Intro"},
		{Start: 1500, End: 4000, Name: "News"},
	},
}

func TestRenderTextFrames(t *testing.T) {
	data, err := id3.Render(sampleMeta, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if tag.Artist() != "Weekly Show" {
		t.Fatalf("artist = %q", tag.Artist())
	}
	if tag.Title() != "Pilot" {
		t.Fatalf("title = %q", tag.Title())
	}
	if got := tag.GetTextFrame("TRCK").Text; got != "12" {
		t.Fatalf("track = %q", got)
	}
}

func TestRenderTableOfContents(t *testing.T) {
	data, err := id3.Render(sampleMeta, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	frames := walkFrames(t, data)

	toc, ok := frames["CTOC"]
	if !ok || len(toc) != 1 {
		t.Fatalf("expected one CTOC frame, got %d", len(toc))
	}
	wantTOC := []byte("toc\x00\x03\x02chp0\x00chp1\x00")
	if !bytes.Equal(toc[0], wantTOC) {
		t.Fatalf("CTOC body = %q, want %q", toc[0], wantTOC)
	}

	chaps := frames["CHAP"]
	if len(chaps) != 2 {
		t.Fatalf("expected 2 CHAP frames, got %d", len(chaps))
	}
	seen := map[string]bool{}
	for _, body := range chaps {
		id, rest, found := bytes.Cut(body, []byte{0})
		if !found || len(rest) < 16 {
			t.Fatalf("malformed CHAP body %q", body)
		}
		start := binary.BigEndian.Uint32(rest[0:4])
		end := binary.BigEndian.Uint32(rest[4:8])
		startOff := binary.BigEndian.Uint32(rest[8:12])
		endOff := binary.BigEndian.Uint32(rest[12:16])
		if startOff != 0xFFFFFFFF || endOff != 0xFFFFFFFF {
			t.Fatalf("expected ignored offsets, got %x %x", startOff, endOff)
		}
		sub := rest[16:]
		switch string(id) {
		case "chp0":
			if start != 0 || end != 1500 || !bytes.Contains(sub, []byte("Intro")) {
				t.Fatalf("chp0 = %d..%d %q", start, end, sub)
			}
		case "chp1":
			if start != 1500 || end != 4000 || !bytes.Contains(sub, []byte("News")) {
				t.Fatalf("chp1 = %d..%d %q", start, end, sub)
			}
		default:
			t.Fatalf("unexpected element id %q", id)
		}
		if !bytes.HasPrefix(sub, []byte("TIT2")) {
			t.Fatalf("expected TIT2 sub-frame, got %q", sub)
		}
		seen[string(id)] = true
	}
	if len(seen) != 2 {
		t.Fatalf("duplicate element ids: %v", seen)
	}
}

func TestUnsetFieldsAreOmitted(t *testing.T) {
	data, err := id3.Render(chapters.MetaData{EpisodeTitle: "Only title"}, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	frames := walkFrames(t, data)
	for _, id := range []string{"TPE1", "TRCK", "CTOC", "CHAP"} {
		if _, ok := frames[id]; ok {
			t.Fatalf("unexpected %s frame", id)
		}
	}
	if _, ok := frames["TIT2"]; !ok {
		t.Fatal("expected TIT2 frame")
	}
}

func TestEncodingSelection(t *testing.T) {
	latin := chapters.MetaData{EpisodeTitle: "Café"}
	data, err := id3.Render(latin, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if enc := walkFrames(t, data)["TIT2"][0][0]; enc != 0 {
		t.Fatalf("expected ISO-8859-1 for latin text, got %d", enc)
	}

	wide := chapters.MetaData{EpisodeTitle: "東京"}
	data, err = id3.Render(wide, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if enc := walkFrames(t, data)["TIT2"][0][0]; enc != 3 {
		t.Fatalf("expected UTF-8 for v2.4, got %d", enc)
	}

	data, err = id3.Render(wide, id3.Options{Version: 3, Encoding: id3.EncodingAuto})
	if err != nil {
		t.Fatalf("Render v2.3: %v", err)
	}
	if enc := walkFrames(t, data)["TIT2"][0][0]; enc != 1 {
		t.Fatalf("expected UTF-16 for v2.3, got %d", enc)
	}

	_, err = id3.Render(wide, id3.Options{Version: 4, Encoding: id3.EncodingLatin1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error forcing latin1, got %v", err)
	}
}

func TestIsLatin1NormalizesCombiningMarks(t *testing.T) {
	if !id3.IsLatin1("plain") || id3.IsLatin1("€") {
		t.Fatal("unexpected IsLatin1 result")
	}
	data, err := id3.Render(chapters.MetaData{EpisodeTitle: "Cafe\u0301"}, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := walkFrames(t, data)["TIT2"][0]
	if body[0] != 0 {
		t.Fatalf("expected NFC text to fit ISO-8859-1, encoding %d", body[0])
	}
}

func TestApplyReplacesExistingTag(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x64, 1, 2, 3, 4}
	old, err := id3.Render(chapters.MetaData{EpisodeTitle: "Old"}, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	input := append(append([]byte{}, old...), audio...)

	out, err := id3.Apply(input, chapters.MetaData{EpisodeTitle: "New"}, id3.DefaultOptions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	n := id3.TagLength(out)
	if n == 0 {
		t.Fatal("expected leading tag")
	}
	if !bytes.Equal(out[n:], audio) {
		t.Fatalf("audio changed: %x", out[n:])
	}
	if bytes.Contains(out, []byte("Old")) {
		t.Fatal("old tag was not stripped")
	}
	if !bytes.Contains(out[:n], []byte("New")) {
		t.Fatal("new title missing")
	}
}

func TestStripTagsLeavesUntaggedData(t *testing.T) {
	audio := []byte("ID3 is not a header here")
	if got := id3.StripTags(audio); !bytes.Equal(got, audio) {
		t.Fatalf("StripTags modified untagged data: %q", got)
	}
}

func TestBuildRejectsBadVersion(t *testing.T) {
	_, err := id3.Build(sampleMeta, id3.Options{Version: 2})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// walkFrames splits an ID3v2.3/2.4 tag into frame bodies keyed by frame id.
// Test frames stay under 128 bytes, so plain and synchsafe sizes agree.
func walkFrames(t *testing.T, data []byte) map[string][][]byte {
	t.Helper()
	n := id3.TagLength(data)
	if n == 0 {
		t.Fatalf("no ID3 header in %q", data)
	}
	frames := map[string][][]byte{}
	pos := 10
	for pos+10 <= n {
		id := string(data[pos : pos+4])
		if data[pos] == 0 {
			break
		}
		size := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		if size >= 128 {
			t.Fatalf("frame %s too large for test walker: %d", id, size)
		}
		body := data[pos+10 : pos+10+size]
		frames[id] = append(frames[id], body)
		pos += 10 + size
	}
	return frames
}
