package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateBundle(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if err := ensurePositiveMap(map[string]int{
		"encoder.bitrate_kbps":    c.Encoder.BitrateKbps,
		"encoder.timeout_seconds": c.Encoder.TimeoutSeconds,
	}); err != nil {
		return err
	}
	switch c.Encoder.Mode {
	case "mono", "stereo", "joint", "dual":
	default:
		return fmt.Errorf("encoder.mode must be one of mono, stereo, joint, dual (got %q)", c.Encoder.Mode)
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.TextEncoding {
	case "auto", "latin1", "utf8":
	default:
		return fmt.Errorf("metadata.text_encoding must be auto, latin1 or utf8 (got %q)", c.Metadata.TextEncoding)
	}
	if c.Metadata.ID3Version != 3 && c.Metadata.ID3Version != 4 {
		return errors.New("metadata.id3_version must be 3 or 4")
	}
	return nil
}

func (c *Config) validateBundle() error {
	if strings.ContainsAny(c.Bundle.Name, `/\`) {
		return errors.New("bundle.name must not contain path separators")
	}
	switch c.Bundle.LogLevel {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL":
	default:
		return fmt.Errorf("bundle.log_level %q is not a recognised level", c.Bundle.LogLevel)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
