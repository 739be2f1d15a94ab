package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	c.normalizeMetadata()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeBundle()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() error {
	c.Encoder.LamePath = strings.TrimSpace(c.Encoder.LamePath)
	if c.Encoder.LamePath == "" {
		if value, ok := os.LookupEnv("CHAPTERS_LAME_PATH"); ok {
			c.Encoder.LamePath = strings.TrimSpace(value)
		}
	}
	// A bare command name is resolved through PATH later; only expand real paths.
	if strings.ContainsAny(c.Encoder.LamePath, `/\~`) {
		var err error
		if c.Encoder.LamePath, err = expandPath(c.Encoder.LamePath); err != nil {
			return fmt.Errorf("encoder.lame_path: %w", err)
		}
	}
	c.Encoder.Mode = strings.ToLower(strings.TrimSpace(c.Encoder.Mode))
	if c.Encoder.Mode == "" {
		c.Encoder.Mode = defaultEncoderMode
	}
	if c.Encoder.BitrateKbps == 0 {
		c.Encoder.BitrateKbps = defaultBitrateKbps
	}
	if c.Encoder.TimeoutSeconds == 0 {
		c.Encoder.TimeoutSeconds = defaultEncoderTimeout
	}
	return nil
}

func (c *Config) normalizeMetadata() {
	c.Metadata.DefaultPodcastTitle = strings.TrimSpace(c.Metadata.DefaultPodcastTitle)
	if c.Metadata.DefaultPodcastTitle == "" {
		if value, ok := os.LookupEnv("CHAPTERS_PODCAST_TITLE"); ok {
			c.Metadata.DefaultPodcastTitle = strings.TrimSpace(value)
		}
	}
	c.Metadata.TextEncoding = strings.ToLower(strings.TrimSpace(c.Metadata.TextEncoding))
	switch c.Metadata.TextEncoding {
	case "":
		c.Metadata.TextEncoding = defaultTextEncoding
	case "utf-8":
		c.Metadata.TextEncoding = "utf8"
	case "iso-8859-1", "latin-1":
		c.Metadata.TextEncoding = "latin1"
	}
	if c.Metadata.ID3Version == 0 {
		c.Metadata.ID3Version = defaultID3Version
	}
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

// Bundle paths stay relative to the project directory, matching how the
// packaging command is invoked from the repository root.
func (c *Config) normalizeBundle() {
	b := &c.Bundle
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		b.Name = defaultBundleName
	}
	b.Entry = strings.TrimSpace(b.Entry)
	if b.Entry == "" {
		b.Entry = defaultBundleEntry
	}
	b.DistDir = strings.TrimSpace(b.DistDir)
	if b.DistDir == "" {
		b.DistDir = defaultBundleDistDir
	}
	b.WorkDir = strings.TrimSpace(b.WorkDir)
	if b.WorkDir == "" {
		b.WorkDir = defaultBundleWorkDir
	}
	b.LogLevel = strings.ToUpper(strings.TrimSpace(b.LogLevel))
	if b.LogLevel == "" {
		b.LogLevel = defaultBundleLogLevel
	}
	b.TargetOS = strings.ToLower(strings.TrimSpace(b.TargetOS))
	b.TargetArch = strings.ToLower(strings.TrimSpace(b.TargetArch))
	// Array tables append during decode, so defaults are only filled in here.
	b.Binaries = normalizeBundleFiles(b.Binaries)
	if len(b.Binaries) == 0 {
		b.Binaries = DefaultBundleBinaries()
	}
	b.Data = normalizeBundleFiles(b.Data)
	if len(b.Data) == 0 {
		b.Data = DefaultBundleData()
	}
}

func normalizeBundleFiles(files []BundleFile) []BundleFile {
	out := make([]BundleFile, 0, len(files))
	for _, file := range files {
		source := strings.TrimSpace(file.Source)
		if source == "" {
			continue
		}
		dest := strings.TrimSpace(file.Dest)
		if dest == "" {
			dest = defaultBundleDataDest
		}
		out = append(out, BundleFile{Source: source, Dest: dest})
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
