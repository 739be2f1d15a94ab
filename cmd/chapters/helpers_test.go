package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"chapters/internal/config"
	"chapters/internal/testsupport"
)

const stubLameScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "LAME 64bits version 3.100 (http://lame.sf.net)"
  exit 0
fi
for last; do :; done
printf '    10/100   ( 10%%)| 0:00/ 0:01\r' >&2
printf '    50/100   ( 50%%)| 0:00/ 0:01\r' >&2
printf '   100/100   (100%%)| 0:01/ 0:01\n' >&2
printf '\377\373\220\144stub-audio' > "$last"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("encoder stub is a shell script")
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("CHAPTERS_LAME_PATH", "")
	t.Setenv("CHAPTERS_PODCAST_TITLE", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	cfg.Encoder.LamePath = filepath.Join(base, "bin", "lame")
	if err := os.MkdirAll(filepath.Dir(cfg.Encoder.LamePath), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(cfg.Encoder.LamePath, []byte(stubLameScript), 0o755); err != nil {
		t.Fatalf("write lame stub: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func sampleWAV(t *testing.T, dir string) string {
	t.Helper()
	return testsupport.WriteWAV(t, dir, "12 - Pilot.wav", testsupport.WAVSpec{
		SampleRate: 1000,
		Frames:     6000,
		Cues: []testsupport.Cue{
			{ID: 1, Position: 0, Label: "Intro"},
			{ID: 2, Position: 2500, Label: "Interview"},
		},
	})
}
