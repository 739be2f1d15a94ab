package lame

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"chapters/internal/services"
)

// BinaryName is the platform-specific executable name of the encoder.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "lame.exe"
	}
	return "lame"
}

// SidecarPath returns where a bundle keeps the encoder relative to the
// running executable.
func SidecarPath() (string, bool) {
	exe, err := os.Executable()
	if err != nil {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(exe), "lib", BinaryName())
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

// ResolveBinary finds the encoder: the configured path first, then the
// bundled lib/ directory beside the executable, then PATH.
func ResolveBinary(configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if strings.ContainsRune(configured, os.PathSeparator) || filepath.IsAbs(configured) {
			info, err := os.Stat(configured)
			if err != nil {
				return "", services.Wrap(services.ErrNotFound, stage, "resolve lame", configured, err)
			}
			if info.IsDir() {
				return "", services.Wrap(services.ErrConfiguration, stage, "resolve lame", configured+" is a directory", nil)
			}
			return configured, nil
		}
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", services.Wrap(services.ErrNotFound, stage, "resolve lame", configured, err)
		}
		return path, nil
	}
	if path, ok := SidecarPath(); ok {
		return path, nil
	}
	path, err := exec.LookPath(BinaryName())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", services.Wrap(services.ErrNotFound, stage, "resolve lame",
				"lame not found in lib/ or PATH; install it or set encoder.lame_path", err)
		}
		return "", services.Wrap(services.ErrNotFound, stage, "resolve lame", "", err)
	}
	return path, nil
}
