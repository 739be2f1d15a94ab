package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Cue describes a marker to embed in a generated WAV file. A negative
// Position writes only the label with no cue point.
type Cue struct {
	ID       uint32
	Position int64
	Label    string
}

// WAVSpec controls the generated WAV layout.
type WAVSpec struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	Frames        uint32
	Cues          []Cue
	// ExtraChunk, when set, is written before the cue chunk to exercise
	// skipping of unknown chunks. Odd lengths get a pad byte.
	ExtraChunk []byte
}

// BuildWAV renders a RIFF/WAVE file with fmt, data, cue and an adtl LIST
// holding labl entries.
func BuildWAV(layout WAVSpec) []byte {
	if layout.SampleRate == 0 {
		layout.SampleRate = 44100
	}
	if layout.Channels == 0 {
		layout.Channels = 1
	}
	if layout.BitsPerSample == 0 {
		layout.BitsPerSample = 16
	}
	blockAlign := layout.Channels * ((layout.BitsPerSample + 7) / 8)

	var body bytes.Buffer
	body.WriteString("WAVE")

	fmtChunk := new(bytes.Buffer)
	le(fmtChunk, uint16(1))
	le(fmtChunk, layout.Channels)
	le(fmtChunk, layout.SampleRate)
	le(fmtChunk, layout.SampleRate*uint32(blockAlign))
	le(fmtChunk, blockAlign)
	le(fmtChunk, layout.BitsPerSample)
	writeChunk(&body, "fmt ", fmtChunk.Bytes())

	if len(layout.ExtraChunk) > 0 {
		writeChunk(&body, "junk", layout.ExtraChunk)
	}

	writeChunk(&body, "data", make([]byte, int(layout.Frames)*int(blockAlign)))

	var cues []Cue
	for _, c := range layout.Cues {
		if c.Position >= 0 {
			cues = append(cues, c)
		}
	}
	if len(cues) > 0 {
		cue := new(bytes.Buffer)
		le(cue, uint32(len(cues)))
		for _, c := range cues {
			le(cue, c.ID)
			le(cue, uint32(c.Position))
			cue.WriteString("data")
			le(cue, uint32(0))
			le(cue, uint32(0))
			le(cue, uint32(c.Position))
		}
		writeChunk(&body, "cue ", cue.Bytes())
	}

	adtl := new(bytes.Buffer)
	adtl.WriteString("adtl")
	for _, c := range layout.Cues {
		if c.Label == "" {
			continue
		}
		labl := new(bytes.Buffer)
		le(labl, c.ID)
		labl.WriteString(c.Label)
		labl.WriteByte(0)
		writeChunk(adtl, "labl", labl.Bytes())
	}
	if adtl.Len() > 4 {
		writeChunk(&body, "LIST", adtl.Bytes())
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	le(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteWAV writes a generated WAV file to dir/name and returns its path.
func WriteWAV(t testing.TB, dir, name string, layout WAVSpec) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, BuildWAV(layout), 0o644); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
	return path
}

func writeChunk(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	le(buf, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
}

func le(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}
