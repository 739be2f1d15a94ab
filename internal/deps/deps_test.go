package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"chapters/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "another-missing-binary", Optional: true},
		{Name: "Blank"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail: %q", results[3].Detail)
	}

	missing := MissingRequired(results)
	if len(missing) != 2 || missing[0] != "Missing" || missing[1] != "Blank" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestCheckEncoderConfiguredPath(t *testing.T) {
	tmp := t.TempDir()
	lamePath := filepath.Join(tmp, executableName("lame"))
	if err := os.WriteFile(lamePath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write lame stub: %v", err)
	}
	status := CheckEncoder(lamePath)
	if !status.Available || status.Command != lamePath {
		t.Fatalf("expected configured lame to be available, got %#v", status)
	}
}

func TestCheckEncoderPathFallback(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, executableName("lame")), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write lame stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := CheckEncoder("")
	if !status.Available {
		t.Fatalf("expected lame on PATH, got %#v", status)
	}
}

func TestCheckEncoderMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := CheckEncoder(filepath.Join(t.TempDir(), "nope"))
	if status.Available || status.Detail == "" {
		t.Fatalf("expected unavailable encoder with detail, got %#v", status)
	}
}

func TestCheckAllIncludesOptionalToolchain(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	statuses := CheckAll("")
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[1].Optional || statuses[1].Name != "Go toolchain" {
		t.Fatalf("unexpected toolchain status %#v", statuses[1])
	}
}

func TestCheckAllWithStubbedTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	t.Setenv("PATH", t.TempDir())
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("lame", "go"))

	statuses := CheckAll("")
	for _, s := range statuses {
		if !s.Available {
			t.Fatalf("expected %s to be available, got %#v", s.Name, s)
		}
	}
	if missing := MissingRequired(statuses); len(missing) != 0 {
		t.Fatalf("unexpected missing %v", missing)
	}
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
