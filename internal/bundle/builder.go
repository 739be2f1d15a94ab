package bundle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"

	"chapters/internal/fileutil"
	"chapters/internal/logging"
	"chapters/internal/services"
)

const lockWait = 30 * time.Second

// Runner executes the toolchain and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// Prompter asks the user a yes/no question.
type Prompter func(question string) (bool, error)

// Option configures a Builder.
type Option func(*Builder)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(b *Builder) {
		if r != nil {
			b.runner = r
		}
	}
}

// WithLogger sets the base logger. The manifest log level filters it.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPrompter overrides the overwrite confirmation prompt.
func WithPrompter(p Prompter, interactive bool) Option {
	return func(b *Builder) {
		b.prompt = p
		b.interactive = interactive
	}
}

// WithProjectDir resolves relative manifest paths against dir.
func WithProjectDir(dir string) Option {
	return func(b *Builder) {
		if dir != "" {
			b.projectDir = dir
		}
	}
}

// WithGoBinary overrides the go executable.
func WithGoBinary(path string) Option {
	return func(b *Builder) {
		if path != "" {
			b.goBinary = path
		}
	}
}

// Builder compiles the entry point and assembles the bundle directory.
type Builder struct {
	runner      Runner
	logger      *slog.Logger
	prompt      Prompter
	interactive bool
	projectDir  string
	goBinary    string
}

// Report describes a finished bundle.
type Report struct {
	BundleDir  string
	Executable string
	Embedded   []string
	Size       int64
	Duration   time.Duration
}

// NewBuilder constructs a Builder. Without WithPrompter it prompts on stdin
// when stdin is a terminal.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		runner:      commandRunner{},
		logger:      logging.NewNop(),
		prompt:      stdinPrompter(os.Stdin, os.Stderr),
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		goBinary:    "go",
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.projectDir == "" {
		if wd, err := os.Getwd(); err == nil {
			b.projectDir = wd
		}
	}
	return b
}

// Build produces <dist>/<name>/ holding the executable and every embed.
func (b *Builder) Build(ctx context.Context, m Manifest) (*Report, error) {
	started := time.Now()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m = b.resolve(m)
	logger := logging.NewComponentLogger(logging.WithMinLevel(b.logger, m.LogLevel), "bundle")
	logger = logging.WithContext(services.WithStage(ctx, stage), logger)

	if err := checkSources(m); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.DistDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "dist", m.DistDir, err)
	}

	lock := flock.New(filepath.Join(m.DistDir, "."+m.Name+".lock"))
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	cancel()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stage, "lock", "another bundle build holds the dist lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, stage, "lock", "dist directory busy", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	bundleDir := m.BundleDir()
	if err := b.prepareBundleDir(m, bundleDir, logger); err != nil {
		return nil, err
	}
	if err := prepareWorkDir(m, logger); err != nil {
		return nil, err
	}

	exe := filepath.Join(bundleDir, m.ExecutableName())
	if err := b.compile(ctx, m, exe, logger); err != nil {
		return nil, err
	}

	report := &Report{BundleDir: bundleDir, Executable: exe}
	for _, e := range append(append([]Embed(nil), m.Binaries...), m.Data...) {
		target := m.EmbedTarget(bundleDir, e)
		if err := fileutil.CopyFileVerified(e.Source, target); err != nil {
			return nil, services.Wrap(services.ErrValidation, stage, "embed", e.Source, err)
		}
		logger.Debug("embedded file", logging.String("source", e.Source), logging.String("target", target))
		report.Embedded = append(report.Embedded, target)
	}

	report.Size = dirSize(bundleDir)
	report.Duration = time.Since(started)
	logger.Info("bundle built",
		logging.String("bundle_dir", bundleDir),
		logging.String("size", humanize.Bytes(uint64(report.Size))),
		logging.Duration("elapsed", report.Duration),
	)
	return report, nil
}

// ResolvePath returns p made absolute against the project dir.
func (b *Builder) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.projectDir, p)
}

// resolve makes every relative path absolute against the project dir and
// fills target defaults.
func (b *Builder) resolve(m Manifest) Manifest {
	abs := b.ResolvePath
	m.DistDir = abs(m.DistDir)
	m.WorkDir = abs(m.WorkDir)
	m.TargetOS = m.targetOS()
	m.TargetArch = m.targetArch()
	resolveEmbeds := func(list []Embed) []Embed {
		out := make([]Embed, len(list))
		for i, e := range list {
			out[i] = Embed{Source: abs(e.Source), Dest: e.Dest}
		}
		return out
	}
	m.Binaries = resolveEmbeds(m.Binaries)
	m.Data = resolveEmbeds(m.Data)
	return m
}

func checkSources(m Manifest) error {
	var missing []string
	for _, e := range append(append([]Embed(nil), m.Binaries...), m.Data...) {
		info, err := os.Stat(e.Source)
		if err != nil || info.IsDir() {
			missing = append(missing, e.Source)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrNotFound, stage, "embed", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

func (b *Builder) prepareBundleDir(m Manifest, bundleDir string, logger *slog.Logger) error {
	_, err := os.Stat(bundleDir)
	exists := err == nil
	if exists && !m.NoConfirm {
		if !b.interactive || b.prompt == nil {
			return services.Wrap(services.ErrValidation, stage, "overwrite",
				bundleDir+" exists and cannot be confirmed without a terminal", nil)
		}
		ok, err := b.prompt(fmt.Sprintf("Output directory %s exists. Replace it?", bundleDir))
		if err != nil {
			return services.Wrap(services.ErrValidation, stage, "overwrite", "prompt failed", err)
		}
		if !ok {
			return services.Wrap(services.ErrValidation, stage, "overwrite", "cancelled by user", nil)
		}
	}
	if exists {
		logger.Info("removing previous bundle", logging.String("bundle_dir", bundleDir))
		if err := os.RemoveAll(bundleDir); err != nil {
			return services.Wrap(services.ErrValidation, stage, "overwrite", bundleDir, err)
		}
	}
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, stage, "bundle dir", bundleDir, err)
	}
	return nil
}

// prepareWorkDir empties WorkDir when Clean is set and recreates it. It runs
// only after the overwrite question is settled.
func prepareWorkDir(m Manifest, logger *slog.Logger) error {
	if m.WorkDir == "" {
		return nil
	}
	if m.Clean {
		logger.Info("cleaning build cache", logging.String("work_dir", m.WorkDir))
		if err := os.RemoveAll(m.WorkDir); err != nil {
			return services.Wrap(services.ErrValidation, stage, "clean", m.WorkDir, err)
		}
	}
	for _, dir := range []string{m.WorkDir, cacheDir(m)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrValidation, stage, "work dir", dir, err)
		}
	}
	return nil
}

// cacheDir is the go build cache kept inside WorkDir.
func cacheDir(m Manifest) string {
	if m.WorkDir == "" {
		return ""
	}
	return filepath.Join(m.WorkDir, "gocache")
}

// GoBuildArgs returns the go command line compiling the entry point to exe.
// A clean build forces every package to rebuild.
func GoBuildArgs(m Manifest, exe string) []string {
	args := []string{"build", "-trimpath"}
	if m.Clean {
		args = append(args, "-a")
	}
	if m.GUISubsystem() {
		args = append(args, "-ldflags", "-H=windowsgui")
	}
	return append(args, "-o", exe, m.Entry)
}

func (b *Builder) compile(ctx context.Context, m Manifest, exe string, logger *slog.Logger) error {
	args := GoBuildArgs(m, exe)
	env := append(os.Environ(),
		"GOOS="+m.TargetOS,
		"GOARCH="+m.TargetArch,
		"CGO_ENABLED=0",
	)
	if m.WorkDir != "" {
		env = append(env, "GOTMPDIR="+m.WorkDir, "GOCACHE="+cacheDir(m))
	}
	logger.Info("compiling",
		logging.String("command", b.goBinary+" "+strings.Join(args, " ")),
		logging.String("goos", m.TargetOS),
		logging.String("goarch", m.TargetArch),
	)
	output, err := b.runner.Run(ctx, b.projectDir, env, b.goBinary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "go build failed"
		}
		logger.Error("compile failed", logging.Error(err))
		return services.Wrap(services.ErrExternalTool, stage, "go build", detail, err)
	}
	if _, err := os.Stat(exe); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "go build", "no executable produced", err)
	}
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, fmt.Errorf("%s exited with %d: %w", name, exitErr.ExitCode(), err)
		}
		return out, fmt.Errorf("run %s: %w", name, err)
	}
	return out, nil
}

func stdinPrompter(in io.Reader, out io.Writer) Prompter {
	reader := bufio.NewReader(in)
	return func(question string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", question)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
