package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"chapters/internal/pipeline"
)

// progressReporter draws one bar per pipeline stage. When disabled the
// pipeline's sampled progress logs are the only feedback.
type progressReporter struct {
	out     io.Writer
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer, enabled bool) *progressReporter {
	return &progressReporter{out: out, enabled: enabled}
}

func (p *progressReporter) start(description string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	p.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressReporter) set(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Set(percent)
	}
}

func (p *progressReporter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func (p *progressReporter) listener() pipeline.Listener {
	return pipeline.FuncListener{
		OnEncodeStarted:    func() { p.start("encoding") },
		OnEncodeUpdate:     p.set,
		OnEncodeComplete:   func([]byte) { p.finish() },
		OnWriteMP3Started:  func() { p.start("writing ") },
		OnWriteMP3Progress: p.set,
		OnWriteMP3Complete: p.finish,
	}
}
