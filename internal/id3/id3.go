package id3

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"chapters/internal/chapters"
	"chapters/internal/services"
)

const (
	stage = "id3"

	// TOCElementID is the element id of the single top-level table of contents.
	TOCElementID = "toc"

	tocFlagOrdered  = 0x01
	tocFlagTopLevel = 0x02
	maxTOCEntries   = 255
)

// Text encoding policies.
const (
	EncodingAuto   = "auto"
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf8"
)

// Options controls how tags are rendered.
type Options struct {
	// Version is the ID3v2 minor version, 3 or 4.
	Version int
	// Encoding is one of EncodingAuto, EncodingLatin1 or EncodingUTF8.
	Encoding string
}

// DefaultOptions renders ID3v2.4 tags and picks the narrowest encoding that
// holds every string.
func DefaultOptions() Options {
	return Options{Version: 4, Encoding: EncodingAuto}
}

// ChapterElementID returns the CHAP element id for the chapter at index.
func ChapterElementID(index int) string {
	return "chp" + strconv.Itoa(index)
}

// Build assembles a tag for meta. Unset fields produce no frame.
func Build(meta chapters.MetaData, opts Options) (*id3v2.Tag, error) {
	opts = normalizeOptions(opts)
	if opts.Version != 3 && opts.Version != 4 {
		return nil, services.Wrap(services.ErrValidation, stage, "build",
			fmt.Sprintf("unsupported ID3v2 version %d", opts.Version), nil)
	}
	if len(meta.Chapters) > maxTOCEntries {
		return nil, services.Wrap(services.ErrValidation, stage, "build",
			fmt.Sprintf("%d chapters exceed the table of contents limit of %d", len(meta.Chapters), maxTOCEntries), nil)
	}

	meta = normalizeText(meta)
	enc, err := chooseEncoding(meta, opts)
	if err != nil {
		return nil, err
	}

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(byte(opts.Version))
	tag.SetDefaultEncoding(enc)

	if meta.PodcastTitle != "" {
		tag.AddTextFrame("TPE1", enc, meta.PodcastTitle)
	}
	if meta.EpisodeTitle != "" {
		tag.AddTextFrame("TIT2", enc, meta.EpisodeTitle)
	}
	if meta.EpisodeNumber != 0 {
		tag.AddTextFrame("TRCK", enc, strconv.Itoa(meta.EpisodeNumber))
	}

	if len(meta.Chapters) == 0 {
		return tag, nil
	}

	tag.AddFrame("CTOC", id3v2.UnknownFrame{Body: tocBody(len(meta.Chapters))})
	for i, ch := range meta.Chapters {
		tag.AddChapterFrame(id3v2.ChapterFrame{
			ElementID:   ChapterElementID(i),
			StartTime:   time.Duration(ch.Start) * time.Millisecond,
			EndTime:     time.Duration(ch.End) * time.Millisecond,
			StartOffset: id3v2.IgnoredOffset,
			EndOffset:   id3v2.IgnoredOffset,
			Title: &id3v2.TextFrame{
				Encoding: enc,
				Text:     ch.Name,
			},
		})
	}
	return tag, nil
}

// Render builds the tag for meta and returns its serialized bytes.
func Render(meta chapters.MetaData, opts Options) ([]byte, error) {
	tag, err := Build(meta, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "render", "serialize tag", err)
	}
	return buf.Bytes(), nil
}

// Apply returns a copy of mp3 with any leading ID3v2 tags removed and a new
// tag for meta prepended.
func Apply(mp3 []byte, meta chapters.MetaData, opts Options) ([]byte, error) {
	header, err := Render(meta, opts)
	if err != nil {
		return nil, err
	}
	audio := StripTags(mp3)
	out := make([]byte, 0, len(header)+len(audio))
	out = append(out, header...)
	out = append(out, audio...)
	return out, nil
}

// tocBody renders a CTOC payload: element id, flags, entry count and the
// child element ids. No embedded sub-frames are written.
func tocBody(count int) []byte {
	var buf bytes.Buffer
	buf.WriteString(TOCElementID)
	buf.WriteByte(0)
	buf.WriteByte(tocFlagTopLevel | tocFlagOrdered)
	buf.WriteByte(byte(count))
	for i := 0; i < count; i++ {
		buf.WriteString(ChapterElementID(i))
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func normalizeOptions(opts Options) Options {
	if opts.Version == 0 {
		opts.Version = 4
	}
	opts.Encoding = strings.ToLower(strings.TrimSpace(opts.Encoding))
	switch opts.Encoding {
	case "", "auto":
		opts.Encoding = EncodingAuto
	case "latin-1", "iso-8859-1":
		opts.Encoding = EncodingLatin1
	case "utf-8":
		opts.Encoding = EncodingUTF8
	}
	return opts
}

func normalizeText(meta chapters.MetaData) chapters.MetaData {
	meta.PodcastTitle = norm.NFC.String(meta.PodcastTitle)
	meta.EpisodeTitle = norm.NFC.String(meta.EpisodeTitle)
	if len(meta.Chapters) > 0 {
		list := make([]chapters.Chapter, len(meta.Chapters))
		for i, ch := range meta.Chapters {
			ch.Name = norm.NFC.String(ch.Name)
			list[i] = ch
		}
		meta.Chapters = list
	}
	return meta
}

// chooseEncoding picks ISO-8859-1 when every string fits, otherwise a
// Unicode encoding valid for the tag version. ID3v2.3 has no UTF-8.
func chooseEncoding(meta chapters.MetaData, opts Options) (id3v2.Encoding, error) {
	unicodeEnc := id3v2.EncodingUTF8
	if opts.Version == 3 {
		unicodeEnc = id3v2.EncodingUTF16
	}
	switch opts.Encoding {
	case EncodingUTF8:
		return unicodeEnc, nil
	case EncodingLatin1:
		if bad, ok := firstNonLatin1(meta); !ok {
			return id3v2.EncodingISO, services.Wrap(services.ErrValidation, stage, "encoding",
				fmt.Sprintf("%q is not representable in ISO-8859-1", bad), nil)
		}
		return id3v2.EncodingISO, nil
	case EncodingAuto:
		if _, ok := firstNonLatin1(meta); ok {
			return id3v2.EncodingISO, nil
		}
		return unicodeEnc, nil
	default:
		return id3v2.EncodingISO, services.Wrap(services.ErrValidation, stage, "encoding",
			fmt.Sprintf("unknown text encoding %q", opts.Encoding), nil)
	}
}

// firstNonLatin1 returns the first string that ISO-8859-1 cannot hold.
func firstNonLatin1(meta chapters.MetaData) (string, bool) {
	values := []string{meta.PodcastTitle, meta.EpisodeTitle}
	for _, ch := range meta.Chapters {
		values = append(values, ch.Name)
	}
	for _, v := range values {
		if !IsLatin1(v) {
			return v, false
		}
	}
	return "", true
}

// IsLatin1 reports whether s can be encoded as ISO-8859-1.
func IsLatin1(s string) bool {
	if s == "" {
		return true
	}
	_, err := charmap.ISO8859_1.NewEncoder().String(s)
	return err == nil
}
