package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"chapters/internal/config"
	"chapters/internal/history"
	"chapters/internal/id3"
	"chapters/internal/lame"
	"chapters/internal/logging"
	"chapters/internal/pipeline"
	"chapters/internal/services"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool
	stderr       io.Writer

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if c.jsonOutput() {
			cfg.Logging.Format = "json"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) errWriter() io.Writer {
	if c.stderr != nil {
		return c.stderr
	}
	return os.Stderr
}

// ensureLogger writes to the command's stderr and to the log file.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, c.errWriter())
		if c.loggerErr != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "logging", "", "", c.loggerErr)
		}
	})
	return c.logger, c.loggerErr
}

// markerLibrary returns a Library for the operations that never encode.
func (c *commandContext) markerLibrary(listener pipeline.Listener) (*pipeline.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return pipeline.New(nil,
		pipeline.WithListener(listener),
		pipeline.WithLogger(logger),
		pipeline.WithTagOptions(tagOptions(cfg)),
	), nil
}

// encodingLibrary wires the LAME client and, when enabled, the history
// store. The returned func releases the store.
func (c *commandContext) encodingLibrary(listener pipeline.Listener) (*pipeline.Library, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	binary, err := lame.ResolveBinary(cfg.Encoder.LamePath)
	if err != nil {
		return nil, nil, err
	}
	client, err := lame.New(binary, cfg.Encoder.TimeoutSeconds, lame.WithSettings(encoderSettings(cfg)))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "encode", "lame", "", err)
	}

	opts := []pipeline.Option{
		pipeline.WithListener(listener),
		pipeline.WithLogger(logger),
		pipeline.WithTagOptions(tagOptions(cfg)),
	}
	release := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "episode history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path or set history.enabled = false"),
			)
		} else {
			opts = append(opts, pipeline.WithHistory(store))
			release = func() { _ = store.Close() }
		}
	}
	return pipeline.New(client, opts...), release, nil
}

func encoderSettings(cfg *config.Config) lame.Settings {
	return lame.Settings{
		BitrateKbps: cfg.Encoder.BitrateKbps,
		Mode:        cfg.Encoder.Mode,
		CRC:         cfg.Encoder.CRC,
		Copyright:   cfg.Encoder.Copyright,
		Original:    cfg.Encoder.Original,
	}
}

func tagOptions(cfg *config.Config) id3.Options {
	return id3.Options{
		Version:  cfg.Metadata.ID3Version,
		Encoding: cfg.Metadata.TextEncoding,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
