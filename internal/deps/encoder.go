package deps

import (
	"errors"

	"chapters/internal/lame"
	"chapters/internal/services"
)

// CheckEncoder reports the LAME binary the encode command will execute.
//
// The lookup matches lame.ResolveBinary: a configured path wins, then the
// lib/ directory next to the running executable (the bundle layout), then
// PATH.
func CheckEncoder(configured string) Status {
	result := Status{
		Name:        "LAME",
		Description: "MP3 encoder used by encode",
	}
	path, err := lame.ResolveBinary(configured)
	if err != nil {
		result.Command = configured
		if result.Command == "" {
			result.Command = lame.BinaryName()
		}
		result.Detail = "binary not found in lib/ or PATH"
		if !errors.Is(err, services.ErrNotFound) {
			result.Detail = err.Error()
		}
		return result
	}
	result.Command = path
	result.Available = true
	if sidecar, ok := lame.SidecarPath(); ok && sidecar == path {
		result.Detail = "bundled"
	}
	return result
}

// Toolchain describes the go binary used by the bundle command. It is
// optional because only packaging needs it.
func Toolchain() Requirement {
	return Requirement{
		Name:        "Go toolchain",
		Command:     "go",
		Description: "Compiles the executable for bundle",
		Optional:    true,
	}
}

// CheckAll reports the encoder and the optional toolchain.
func CheckAll(lamePath string) []Status {
	statuses := []Status{CheckEncoder(lamePath)}
	return append(statuses, CheckBinaries([]Requirement{Toolchain()})...)
}
