package lame

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"chapters/internal/services"
)

const stage = "encode"

// Executor abstracts command execution for testability. onLine receives every
// line of combined output, split on both carriage returns and newlines.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithSettings overrides the default encoder settings.
func WithSettings(settings Settings) Option {
	return func(c *Client) {
		c.settings = settings
	}
}

// Client wraps LAME CLI interactions.
type Client struct {
	binary   string
	timeout  time.Duration
	settings Settings
	exec     Executor
}

// New constructs a LAME client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("lame binary required")
	}
	client := &Client{
		binary:   binary,
		timeout:  time.Duration(timeoutSeconds) * time.Second,
		settings: DefaultSettings(),
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the resolved encoder path.
func (c *Client) Binary() string {
	return c.binary
}

// Settings returns the encoder settings in use.
func (c *Client) Settings() Settings {
	return c.settings
}

// Encode converts wavPath into mp3Path. progress, when set, receives
// non-decreasing percentages and a final 100 on success.
func (c *Client) Encode(ctx context.Context, wavPath, mp3Path string, progress func(int)) error {
	if strings.TrimSpace(wavPath) == "" || strings.TrimSpace(mp3Path) == "" {
		return services.Wrap(services.ErrValidation, stage, "lame", "input and output paths required", nil)
	}
	if _, err := os.Stat(wavPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stage, "lame", wavPath, err)
		}
		return services.Wrap(services.ErrValidation, stage, "lame", "stat input", err)
	}
	args, err := Args(c.settings, wavPath, mp3Path)
	if err != nil {
		return err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tracker := &progressTracker{report: progress}
	tail := newTailBuffer(8)
	runErr := c.exec.Run(runCtx, c.binary, args, func(line string) {
		if pct, ok := parseProgress(line); ok {
			tracker.update(pct)
			return
		}
		tail.add(line)
	})
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, stage, "lame",
				fmt.Sprintf("exceeded %s", c.timeout), runErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, stage, "lame", tail.String(), runErr)
	}

	info, err := os.Stat(mp3Path)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, stage, "lame", "encoder produced no output", err)
	}
	tracker.update(100)
	return nil
}

// EncodeBytes encodes wavPath and returns the MP3 stream held in memory.
func (c *Client) EncodeBytes(ctx context.Context, wavPath string, progress func(int)) ([]byte, error) {
	dir, err := os.MkdirTemp("", "chapters-encode-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "encoded.mp3")
	if err := c.Encode(ctx, wavPath, out, progress); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read encoded output: %w", err)
	}
	return data, nil
}

var progressPattern = regexp.MustCompile(`\(\s*(\d{1,3})%\)`)

// parseProgress extracts the percentage from LAME's status line, for example
// "  4096/ 10240  ( 40%)| 0:01/ 0:03| ...".
func parseProgress(line string) (int, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct > 100 {
		return 0, false
	}
	return pct, true
}

type progressTracker struct {
	mu     sync.Mutex
	last   int
	sent   bool
	report func(int)
}

func (p *progressTracker) update(pct int) {
	if p.report == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent && pct <= p.last {
		return
	}
	p.last = pct
	p.sent = true
	p.report(pct)
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "encoder failed"
	}
	return strings.Join(t.lines, "; ")
}
