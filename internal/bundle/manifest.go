package bundle

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"chapters/internal/config"
	"chapters/internal/services"
)

const stage = "bundle"

// Variant selects which license files ship with the bundle.
type Variant string

const (
	// VariantLicense embeds LICENSE only.
	VariantLicense Variant = "license"
	// VariantFull embeds LICENSE and COPYING.
	VariantFull Variant = "full"
)

// ParseVariant accepts the variant name or its number.
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "full", "2":
		return VariantFull, nil
	case "license", "1":
		return VariantLicense, nil
	default:
		return "", services.Wrap(services.ErrValidation, stage, "variant",
			fmt.Sprintf("unknown variant %q (want license or full)", raw), nil)
	}
}

// Embed is a file copied into the bundle. Dest is a directory relative to
// the bundle root; "." is the root itself.
type Embed struct {
	Source string
	Dest   string
}

// Manifest is the full packaging request.
type Manifest struct {
	Name       string
	Entry      string
	Clean      bool
	LogLevel   string
	NoConfirm  bool
	Windowed   bool
	Binaries   []Embed
	Data       []Embed
	DistDir    string
	WorkDir    string
	TargetOS   string
	TargetArch string
}

const copyingFile = "COPYING"

// DefaultManifest returns the release manifest for variant, built from the
// config defaults.
func DefaultManifest(variant Variant) Manifest {
	return FromConfig(config.Default().Bundle, variant)
}

// FromConfig builds a manifest from the [bundle] config section. Empty embed
// lists fall back to the config defaults. The license variant drops COPYING
// from the data list.
func FromConfig(cfg config.Bundle, variant Variant) Manifest {
	m := Manifest{
		Name:       cfg.Name,
		Entry:      cfg.Entry,
		Clean:      cfg.Clean,
		LogLevel:   cfg.LogLevel,
		NoConfirm:  cfg.NoConfirm,
		Windowed:   cfg.Windowed,
		DistDir:    cfg.DistDir,
		WorkDir:    cfg.WorkDir,
		TargetOS:   cfg.TargetOS,
		TargetArch: cfg.TargetArch,
	}
	binaries, data := cfg.Binaries, cfg.Data
	if len(binaries) == 0 {
		binaries = config.DefaultBundleBinaries()
	}
	if len(data) == 0 {
		data = config.DefaultBundleData()
	}
	for _, f := range binaries {
		m.Binaries = append(m.Binaries, Embed{Source: f.Source, Dest: f.Dest})
	}
	for _, f := range data {
		if variant == VariantLicense && filepath.Base(f.Source) == copyingFile {
			continue
		}
		m.Data = append(m.Data, Embed{Source: f.Source, Dest: f.Dest})
	}
	return m
}

// PathSeparator returns the SRC/DEST separator used by --add-binary and
// --add-data on the host platform.
func PathSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// Args renders the manifest as the bundler flag list. Disabled options are
// omitted; the entry point comes last.
func (m Manifest) Args(sep string) []string {
	if sep == "" {
		sep = PathSeparator()
	}
	var args []string
	if m.Clean {
		args = append(args, "--clean")
	}
	if m.LogLevel != "" {
		args = append(args, "--log-level="+m.LogLevel)
	}
	if m.NoConfirm {
		args = append(args, "--noconfirm")
	}
	if m.Windowed {
		args = append(args, "--windowed")
	}
	if m.Name != "" {
		args = append(args, "--name="+m.Name)
	}
	for _, b := range m.Binaries {
		args = append(args, "--add-binary="+b.Source+sep+b.Dest)
	}
	for _, d := range m.Data {
		args = append(args, "--add-data="+d.Source+sep+d.Dest)
	}
	if m.Entry != "" {
		args = append(args, m.Entry)
	}
	return args
}

// Validate checks the manifest is complete enough to build.
func (m Manifest) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "name is required")
	} else if strings.ContainsAny(m.Name, `/\`) {
		problems = append(problems, "name must not contain path separators")
	}
	if strings.TrimSpace(m.Entry) == "" {
		problems = append(problems, "entry is required")
	}
	if strings.TrimSpace(m.DistDir) == "" {
		problems = append(problems, "dist dir is required")
	}
	for _, e := range append(append([]Embed(nil), m.Binaries...), m.Data...) {
		if strings.TrimSpace(e.Source) == "" {
			problems = append(problems, "embed source is required")
		}
		if dest := filepath.Clean(e.Dest); filepath.IsAbs(dest) || dest == ".." || strings.HasPrefix(dest, ".."+string(filepath.Separator)) {
			problems = append(problems, fmt.Sprintf("embed destination %q escapes the bundle", e.Dest))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, stage, "manifest", strings.Join(problems, "; "), nil)
	}
	return nil
}

// BundleDir is the output directory, named after the artifact.
func (m Manifest) BundleDir() string {
	return filepath.Join(m.DistDir, m.Name)
}

// ExecutableName is the artifact file name for the target OS.
func (m Manifest) ExecutableName() string {
	if m.targetOS() == "windows" {
		return m.Name + ".exe"
	}
	return m.Name
}

// EmbedTarget returns where e lands inside bundleDir.
func (m Manifest) EmbedTarget(bundleDir string, e Embed) string {
	dest := e.Dest
	if dest == "" {
		dest = "."
	}
	return filepath.Join(bundleDir, dest, filepath.Base(e.Source))
}

// GUISubsystem reports whether the executable should be linked without a
// console window.
func (m Manifest) GUISubsystem() bool {
	return m.Windowed && m.targetOS() == "windows"
}

func (m Manifest) targetOS() string {
	if m.TargetOS != "" {
		return m.TargetOS
	}
	return runtime.GOOS
}

func (m Manifest) targetArch() string {
	if m.TargetArch != "" {
		return m.TargetArch
	}
	return runtime.GOARCH
}
