package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// Encoder contains configuration for the LAME MP3 encoder.
type Encoder struct {
	LamePath       string `toml:"lame_path"`
	BitrateKbps    int    `toml:"bitrate_kbps"`
	Mode           string `toml:"mode"`
	CRC            bool   `toml:"crc"`
	Copyright      bool   `toml:"copyright"`
	Original       bool   `toml:"original"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Metadata contains configuration for ID3 tagging.
type Metadata struct {
	DefaultPodcastTitle string `toml:"default_podcast_title"`
	// TextEncoding is one of "auto", "latin1" or "utf8".
	TextEncoding string `toml:"text_encoding"`
	ID3Version   int    `toml:"id3_version"`
}

// History contains configuration for the processed episode store.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <data_dir>/history.db
}

// BundleFile pairs a source path with its destination inside the bundle.
type BundleFile struct {
	Source string `toml:"source"`
	Dest   string `toml:"dest"`
}

// Bundle contains configuration for packaging the application.
type Bundle struct {
	Name       string       `toml:"name"`
	Entry      string       `toml:"entry"`
	DistDir    string       `toml:"dist_dir"`
	WorkDir    string       `toml:"work_dir"`
	Clean      bool         `toml:"clean"`
	LogLevel   string       `toml:"log_level"`
	NoConfirm  bool         `toml:"noconfirm"`
	Windowed   bool         `toml:"windowed"`
	TargetOS   string       `toml:"target_os"`
	TargetArch string       `toml:"target_arch"`
	Binaries   []BundleFile `toml:"binaries"`
	Data       []BundleFile `toml:"data"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Chapters.
//
// Configuration sections by subsystem:
//   - Paths: data, log and default output directories
//   - Encoder: LAME binary location and encoding settings
//   - Metadata: ID3 defaults and text encoding policy
//   - History: processed episode store
//   - Bundle: packaging manifest overrides
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Encoder  Encoder  `toml:"encoder"`
	Metadata Metadata `toml:"metadata"`
	History  History  `toml:"history"`
	Bundle   Bundle   `toml:"bundle"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("chapters.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. OutputDir is
// created on demand by the commands that write into it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite database location for the episode history.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.DataDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
