package lame

import (
	"fmt"
	"strconv"
	"strings"

	"chapters/internal/services"
)

// Settings mirrors the encoder options exposed in configuration.
type Settings struct {
	BitrateKbps int
	// Mode is one of mono, stereo, joint or dual.
	Mode      string
	CRC       bool
	Copyright bool
	Original  bool
}

// DefaultSettings returns 64 kbps mono with CRC, marked original and not
// copyrighted.
func DefaultSettings() Settings {
	return Settings{
		BitrateKbps: 64,
		Mode:        "mono",
		CRC:         true,
		Copyright:   false,
		Original:    true,
	}
}

var modeFlags = map[string]string{
	"mono":   "m",
	"stereo": "s",
	"joint":  "j",
	"dual":   "d",
}

// Args renders the LAME command line for converting in to out.
func Args(s Settings, in, out string) ([]string, error) {
	mode, ok := modeFlags[strings.ToLower(strings.TrimSpace(s.Mode))]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, stage, "lame args",
			fmt.Sprintf("unsupported channel mode %q", s.Mode), nil)
	}
	if s.BitrateKbps <= 0 {
		return nil, services.Wrap(services.ErrValidation, stage, "lame args",
			fmt.Sprintf("bitrate must be positive, got %d", s.BitrateKbps), nil)
	}
	args := []string{"-m", mode, "-b", strconv.Itoa(s.BitrateKbps)}
	if s.CRC {
		args = append(args, "-p")
	}
	args = append(args, "--nohist")
	if s.Copyright {
		args = append(args, "-c")
	}
	if !s.Original {
		args = append(args, "-o")
	}
	args = append(args, in, out)
	return args, nil
}
