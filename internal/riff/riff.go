package riff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"chapters/internal/chapters"
	"chapters/internal/services"
)

const (
	cueRecordSize = 24
	stage         = "riff"
	// maxMetaChunk bounds the fmt, cue and labl bodies read into memory.
	maxMetaChunk = 16 << 20
)

// Format carries the fields of the fmt chunk needed to convert sample
// positions into time.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	BlockAlign    uint16
}

// Marker is a cue point with its optional label.
type Marker struct {
	ID       uint32
	Position uint32
	Label    string
}

// File is the parsed marker view of a WAV file.
type File struct {
	Format  Format
	Frames  uint64
	markers map[uint32]*Marker
	labels  map[uint32]string
}

// Open reads path and parses its chunks.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stage, "open", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, stage, "open", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read walks the RIFF chunks of r, collecting the format, frame count, cue
// points and labels.
func Read(r io.ReadSeeker) (*File, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, notWAV(err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, notWAV(nil)
	}
	limit := int64(binary.LittleEndian.Uint32(header[4:8])) + 8
	end, err := inputSize(r)
	if err != nil {
		return nil, notWAV(err)
	}

	file := &File{
		markers: make(map[uint32]*Marker),
		labels:  make(map[uint32]string),
	}
	pos := int64(len(header))
	for pos+8 <= limit {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, truncated("chunk header", err)
		}
		pos += 8
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "LIST":
			var listType [4]byte
			if _, err := io.ReadFull(r, listType[:]); err != nil {
				return nil, truncated("LIST type", err)
			}
			pos += 4
			// Sub-chunks of the list are walked in place.
			continue
		case "fmt ", "cue ", "labl":
			if size > maxMetaChunk || pos+size > end {
				return nil, services.Wrap(services.ErrValidation, stage, "read",
					fmt.Sprintf("%s chunk size %d out of bounds", id, size), nil)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, truncated(id, err)
			}
			if err := file.parseChunk(id, body); err != nil {
				return nil, err
			}
		case "data":
			file.recordData(size)
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return nil, truncated(id, err)
			}
		default:
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return nil, truncated(id, err)
			}
		}
		pos += size
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return nil, truncated("pad byte", err)
			}
			pos++
		}
	}
	if file.Format.SampleRate == 0 {
		return nil, services.Wrap(services.ErrValidation, stage, "read", "missing fmt chunk", nil)
	}
	return file, nil
}

// inputSize returns the total length of r and leaves the offset unchanged.
func inputSize(r io.Seeker) (int64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func (f *File) parseChunk(id string, body []byte) error {
	switch id {
	case "fmt ":
		if len(body) < 16 {
			return services.Wrap(services.ErrValidation, stage, "fmt", "chunk too short", nil)
		}
		f.Format = Format{
			AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
			Channels:      binary.LittleEndian.Uint16(body[2:4]),
			SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
			BlockAlign:    binary.LittleEndian.Uint16(body[12:14]),
			BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
		}
	case "cue ":
		if len(body) < 4 {
			return services.Wrap(services.ErrValidation, stage, "cue", "chunk too short", nil)
		}
		count := int(binary.LittleEndian.Uint32(body[0:4]))
		records := body[4:]
		if count*cueRecordSize > len(records) {
			return services.Wrap(services.ErrValidation, stage, "cue",
				fmt.Sprintf("declares %d points but holds %d bytes", count, len(records)), nil)
		}
		for i := 0; i < count; i++ {
			rec := records[i*cueRecordSize : (i+1)*cueRecordSize]
			cueID := binary.LittleEndian.Uint32(rec[0:4])
			f.markers[cueID] = &Marker{ID: cueID, Position: binary.LittleEndian.Uint32(rec[4:8])}
		}
	case "labl":
		if len(body) < 4 {
			return services.Wrap(services.ErrValidation, stage, "labl", "chunk too short", nil)
		}
		cueID := binary.LittleEndian.Uint32(body[0:4])
		text := body[4:]
		if i := bytes.IndexByte(text, 0); i >= 0 {
			text = text[:i]
		}
		f.labels[cueID] = string(text)
	}
	return nil
}

func (f *File) recordData(size int64) {
	align := int64(f.Format.BlockAlign)
	if align == 0 {
		align = int64(f.Format.Channels) * int64((f.Format.BitsPerSample+7)/8)
	}
	if align <= 0 {
		return
	}
	f.Frames = uint64(size / align)
}

// Markers returns cue points sorted by sample position. Labels are attached
// by cue id; a label with no matching cue point is dropped.
func (f *File) Markers() []Marker {
	out := make([]Marker, 0, len(f.markers))
	for id, m := range f.markers {
		marker := *m
		marker.Label = f.labels[id]
		out = append(out, marker)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Millis converts a sample position into whole milliseconds, truncating.
func (f *File) Millis(samples uint64) int {
	if f.Format.SampleRate == 0 {
		return 0
	}
	return int(float64(samples) / float64(f.Format.SampleRate) * 1000)
}

// DurationMillis is the length of the audio data in milliseconds.
func (f *File) DurationMillis() int {
	return f.Millis(f.Frames)
}

// Chapters turns the sorted markers into contiguous chapters. Each chapter
// ends where the next begins; the last ends at the end of the audio.
func (f *File) Chapters() []chapters.Chapter {
	markers := f.Markers()
	if len(markers) == 0 {
		return nil
	}
	out := make([]chapters.Chapter, 0, len(markers))
	for i, m := range markers {
		end := f.DurationMillis()
		if i+1 < len(markers) {
			end = f.Millis(uint64(markers[i+1].Position))
		}
		out = append(out, chapters.Chapter{
			Start: f.Millis(uint64(m.Position)),
			End:   end,
			Name:  m.Label,
		})
	}
	return out
}

// ReadChapters is a shortcut for Open followed by Chapters.
func ReadChapters(path string) ([]chapters.Chapter, error) {
	file, err := Open(path)
	if err != nil {
		return nil, err
	}
	return file.Chapters(), nil
}

func notWAV(err error) error {
	return services.Wrap(services.ErrValidation, stage, "read", "not a WAV file", err)
}

func truncated(what string, err error) error {
	return services.Wrap(services.ErrValidation, stage, "read", "truncated "+what, err)
}
