package bundle_test

import (
	"bytes"
	"context"
	"debug/pe"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"chapters/internal/bundle"
	"chapters/internal/logging"
	"chapters/internal/services"
	"chapters/internal/testsupport"
)

type stubRunner struct {
	calls     int
	args      []string
	env       []string
	subsystem uint16
	output    []byte
	err       error
}

func (s *stubRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	s.calls++
	s.args = append([]string(nil), args...)
	s.env = env
	if s.err != nil {
		return s.output, s.err
	}
	out := args[slices.Index(args, "-o")+1]
	if err := os.WriteFile(out, fakePE(s.subsystem), 0o755); err != nil {
		return nil, err
	}
	return s.output, nil
}

// fakePE renders the smallest PE32+ image debug/pe accepts: a DOS stub, the
// signature, a file header and an optional header without sections.
func fakePE(subsystem uint16) []byte {
	var buf bytes.Buffer
	dos := make([]byte, 64)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], 64)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")
	_ = binary.Write(&buf, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader64{})),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	})
	_ = binary.Write(&buf, binary.LittleEndian, pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           0x140000000,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		Subsystem:           subsystem,
		NumberOfRvaAndSizes: 16,
	})
	return buf.Bytes()
}

func setupProject(t *testing.T, withCopying bool) string {
	t.Helper()
	files := map[string]string{
		"src/lib/lame.exe": "MZ-lame",
		"LICENSE":          "license text",
	}
	if withCopying {
		files["COPYING"] = "gpl text"
	}
	return testsupport.WriteTree(t, t.TempDir(), files)
}

func TestBuildAssemblesBundle(t *testing.T) {
	project := setupProject(t, true)
	runner := &stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}
	builder := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project), bundle.WithPrompter(nil, false))

	m := bundle.DefaultManifest(bundle.VariantFull)
	report, err := builder.Build(context.Background(), m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantDir := filepath.Join(project, "dist", "Chapters")
	if report.BundleDir != wantDir {
		t.Fatalf("bundle dir = %s, want %s", report.BundleDir, wantDir)
	}
	for _, rel := range []string{"Chapters.exe", "lib/lame.exe", "LICENSE", "COPYING"} {
		if _, err := os.Stat(filepath.Join(wantDir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("expected %s in bundle: %v", rel, err)
		}
	}
	if err := bundle.Verify(report.BundleDir, m); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Size <= 0 || len(report.Embedded) != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	joined := strings.Join(runner.args, " ")
	if !strings.Contains(joined, "-ldflags -H=windowsgui") || !strings.HasSuffix(joined, "./cmd/chapters") {
		t.Fatalf("unexpected go args %q", joined)
	}
	for _, kv := range []string{"GOOS=windows", "GOARCH=amd64", "CGO_ENABLED=0", "GOTMPDIR=" + filepath.Join(project, "build")} {
		if !slices.Contains(runner.env, kv) {
			t.Fatalf("missing env %s", kv)
		}
	}
	if _, err := os.Stat(filepath.Join(project, "dist", ".Chapters.lock")); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
}

func TestBuildLicenseVariantOmitsCopying(t *testing.T) {
	project := setupProject(t, false)
	builder := bundle.NewBuilder(bundle.WithRunner(&stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}), bundle.WithProjectDir(project))
	report, err := builder.Build(context.Background(), bundle.DefaultManifest(bundle.VariantLicense))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(report.BundleDir, "COPYING")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("COPYING should not be bundled: %v", err)
	}
}

func TestBuildMissingSourceFailsBeforeCompile(t *testing.T) {
	project := setupProject(t, false)
	runner := &stubRunner{}
	builder := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project))
	_, err := builder.Build(context.Background(), bundle.DefaultManifest(bundle.VariantFull))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "COPYING") {
		t.Fatalf("expected missing file named, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatal("compiler should not run")
	}
}

func TestBuildToolchainFailure(t *testing.T) {
	project := setupProject(t, true)
	runner := &stubRunner{output: []byte("cmd/chapters/main.go:1: syntax error\n"), err: errors.New("exit status 1")}
	builder := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project))
	_, err := builder.Build(context.Background(), bundle.DefaultManifest(bundle.VariantFull))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Fatalf("expected toolchain output in error, got %v", err)
	}
	if services.ExitCode(err) == 0 {
		t.Fatal("expected non-zero exit code")
	}
}

func TestBuildExistingBundleNeedsConfirmation(t *testing.T) {
	project := setupProject(t, true)
	stale := filepath.Join(project, "dist", "Chapters", "stale.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	cached := filepath.Join(project, "build", "gocache", "entry")
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cached, []byte("cache"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := bundle.DefaultManifest(bundle.VariantFull)
	m.NoConfirm = false
	runner := &stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}

	nonInteractive := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project), bundle.WithPrompter(nil, false))
	if _, err := nonInteractive.Build(context.Background(), m); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error off a TTY, got %v", err)
	}

	declined := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project),
		bundle.WithPrompter(func(string) (bool, error) { return false, nil }, true))
	if _, err := declined.Build(context.Background(), m); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatal("declined build must keep the old bundle")
	}
	if _, err := os.Stat(cached); err != nil {
		t.Fatal("refused builds must keep the build cache")
	}

	asked := ""
	accepted := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project),
		bundle.WithPrompter(func(q string) (bool, error) { asked = q; return true, nil }, true))
	if _, err := accepted.Build(context.Background(), m); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if asked == "" {
		t.Fatal("expected a prompt")
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("stale file should be removed")
	}
	if runner.calls != 1 {
		t.Fatalf("expected one compile, got %d", runner.calls)
	}
}

func TestBuildCleanRemovesWorkDir(t *testing.T) {
	project := setupProject(t, true)
	leftover := filepath.Join(project, "build", "leftover.o")
	if err := os.MkdirAll(filepath.Dir(leftover), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}
	builder := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project))
	if _, err := builder.Build(context.Background(), bundle.DefaultManifest(bundle.VariantFull)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(leftover); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("clean should remove the work dir contents")
	}
	if !slices.Contains(runner.args, "-a") {
		t.Fatalf("clean build should force a rebuild, args %v", runner.args)
	}
	cache := filepath.Join(project, "build", "gocache")
	if !slices.Contains(runner.env, "GOCACHE="+cache) {
		t.Fatalf("expected GOCACHE inside the work dir, env %v", runner.env)
	}
	if info, err := os.Stat(cache); err != nil || !info.IsDir() {
		t.Fatalf("expected cache dir to exist: %v", err)
	}
}

func TestBuildWithoutCleanReusesCache(t *testing.T) {
	project := setupProject(t, true)
	cached := filepath.Join(project, "build", "gocache", "entry")
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cached, []byte("cache"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := bundle.DefaultManifest(bundle.VariantFull)
	m.Clean = false
	runner := &stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}
	builder := bundle.NewBuilder(bundle.WithRunner(runner), bundle.WithProjectDir(project))
	if _, err := builder.Build(context.Background(), m); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if slices.Contains(runner.args, "-a") {
		t.Fatalf("incremental build should not force a rebuild, args %v", runner.args)
	}
	if _, err := os.Stat(cached); err != nil {
		t.Fatalf("incremental build should keep the cache: %v", err)
	}
}

func TestBuildLogLevelFiltersInfo(t *testing.T) {
	for _, tc := range []struct {
		level    string
		wantInfo bool
	}{
		{"WARN", false},
		{"INFO", true},
	} {
		project := setupProject(t, true)
		var buf bytes.Buffer
		logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
		if err != nil {
			t.Fatalf("logging.New: %v", err)
		}
		m := bundle.DefaultManifest(bundle.VariantFull)
		m.LogLevel = tc.level
		builder := bundle.NewBuilder(bundle.WithRunner(&stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}),
			bundle.WithProjectDir(project), bundle.WithLogger(logger))
		if _, err := builder.Build(context.Background(), m); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if got := strings.Contains(buf.String(), "bundle built"); got != tc.wantInfo {
			t.Fatalf("level %s: info logged = %v, output %q", tc.level, got, buf.String())
		}
	}
}

func TestVerifyDetectsConsoleSubsystem(t *testing.T) {
	project := setupProject(t, true)
	builder := bundle.NewBuilder(bundle.WithRunner(&stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_CUI}), bundle.WithProjectDir(project))
	m := bundle.DefaultManifest(bundle.VariantFull)
	report, err := builder.Build(context.Background(), m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := bundle.Verify(report.BundleDir, m); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected console subsystem to fail verification, got %v", err)
	}
	sub, err := bundle.Subsystem(report.Executable)
	if err != nil || sub != pe.IMAGE_SUBSYSTEM_WINDOWS_CUI {
		t.Fatalf("Subsystem = %d, %v", sub, err)
	}
}

func TestVerifyMissingEmbed(t *testing.T) {
	project := setupProject(t, true)
	builder := bundle.NewBuilder(bundle.WithRunner(&stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}), bundle.WithProjectDir(project))
	m := bundle.DefaultManifest(bundle.VariantFull)
	report, err := builder.Build(context.Background(), m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := os.Remove(filepath.Join(report.BundleDir, "lib", "lame.exe")); err != nil {
		t.Fatal(err)
	}
	if err := bundle.Verify(report.BundleDir, m); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestBuildCopiesLargeEmbedIntact(t *testing.T) {
	project := setupProject(t, true)
	lamePath := filepath.Join(project, "src", "lib", "lame.exe")
	testsupport.WriteSized(t, lamePath, 300*1024+17)

	builder := bundle.NewBuilder(bundle.WithRunner(&stubRunner{subsystem: pe.IMAGE_SUBSYSTEM_WINDOWS_GUI}), bundle.WithProjectDir(project))
	report, err := builder.Build(context.Background(), bundle.DefaultManifest(bundle.VariantFull))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want, err := os.ReadFile(lamePath)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(report.BundleDir, "lib", "lame.exe"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("bundled lame differs from source (%d vs %d bytes)", len(got), len(want))
	}
}
