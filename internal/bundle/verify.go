package bundle

import (
	"debug/pe"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chapters/internal/services"
)

// Subsystem reads the PE optional header subsystem of a Windows executable.
func Subsystem(path string) (uint16, error) {
	f, err := pe.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open PE %s: %w", path, err)
	}
	defer f.Close()
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		return oh.Subsystem, nil
	case *pe.OptionalHeader32:
		return oh.Subsystem, nil
	default:
		return 0, fmt.Errorf("%s has no optional header", path)
	}
}

// Verify checks a built bundle against its manifest: the directory carries
// the artifact name, the executable and every embed are present, and a
// windowed Windows executable uses the GUI subsystem.
func Verify(bundleDir string, m Manifest) error {
	var errs []error
	if filepath.Base(filepath.Clean(bundleDir)) != m.Name {
		errs = append(errs, fmt.Errorf("bundle directory %q is not named %q", bundleDir, m.Name))
	}
	exe := filepath.Join(bundleDir, m.ExecutableName())
	if info, err := os.Stat(exe); err != nil || info.IsDir() {
		errs = append(errs, fmt.Errorf("executable %s missing", exe))
	} else if m.GUISubsystem() {
		sub, err := Subsystem(exe)
		switch {
		case err != nil:
			errs = append(errs, err)
		case sub != pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
			errs = append(errs, fmt.Errorf("executable subsystem is %d, want windows GUI", sub))
		}
	}
	for _, e := range append(append([]Embed(nil), m.Binaries...), m.Data...) {
		target := m.EmbedTarget(bundleDir, e)
		if _, err := os.Stat(target); err != nil {
			errs = append(errs, fmt.Errorf("embedded file %s missing", target))
		}
	}
	if len(errs) > 0 {
		return services.Wrap(services.ErrValidation, stage, "verify", "", errors.Join(errs...))
	}
	return nil
}
