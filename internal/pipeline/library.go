package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"chapters/internal/chapters"
	"chapters/internal/fileutil"
	"chapters/internal/id3"
	"chapters/internal/logging"
	"chapters/internal/riff"
	"chapters/internal/services"
)

// Stage names used for context and logging.
const (
	StageGuess        = "guess"
	StageReadChapters = "read-chapters"
	StageEncode       = "encode"
	StageAddMetadata  = "add-metadata"
	StageWriteMP3     = "write-mp3"
	StageHistory      = "history"
)

// Encoder turns a WAV file into MP3 bytes.
type Encoder interface {
	EncodeBytes(ctx context.Context, wavPath string, progress func(int)) ([]byte, error)
}

// Option configures a Library.
type Option func(*Library)

// WithListener routes lifecycle events to l.
func WithListener(l Listener) Option {
	return func(lib *Library) {
		if l != nil {
			lib.listener = l
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(lib *Library) {
		if logger != nil {
			lib.logger = logger
		}
	}
}

// WithTagOptions overrides the ID3 rendering options.
func WithTagOptions(opts id3.Options) Option {
	return func(lib *Library) {
		lib.tagOpts = opts
	}
}

// WithHistory enables episode number suggestions and recording in Process.
func WithHistory(h History) Option {
	return func(lib *Library) {
		lib.history = h
	}
}

// WithChunkSize sets the write granularity of WriteMP3.
func WithChunkSize(n int) Option {
	return func(lib *Library) {
		if n > 0 {
			lib.chunkSize = n
		}
	}
}

// Library exposes the chapter, encode, tag and write operations.
type Library struct {
	encoder   Encoder
	listener  Listener
	logger    *slog.Logger
	tagOpts   id3.Options
	history   History
	chunkSize int
}

// New constructs a Library around encoder.
func New(encoder Encoder, opts ...Option) *Library {
	lib := &Library{
		encoder:   encoder,
		listener:  NopListener{},
		logger:    logging.NewNop(),
		tagOpts:   id3.DefaultOptions(),
		chunkSize: fileutil.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(lib)
	}
	lib.logger = logging.NewComponentLogger(lib.logger, "pipeline")
	return lib
}

// GuessPodcastInfo derives episode number and title from the file name.
func (l *Library) GuessPodcastInfo(path string) chapters.MetaData {
	return chapters.GuessPodcastInfo(path)
}

// ReadChapters parses the WAV cue markers into chapters.
func (l *Library) ReadChapters(ctx context.Context, wavPath string) ([]chapters.Chapter, error) {
	ctx = services.WithStage(services.WithSource(ctx, wavPath), StageReadChapters)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.listener.ReadChaptersStarted()
	list, err := riff.ReadChapters(wavPath)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, l.logger).Debug("chapters read", logging.Int("count", len(list)))
	l.listener.ReadChaptersComplete(list)
	return list, nil
}

// EncodeFile encodes the WAV file and returns the MP3 bytes.
func (l *Library) EncodeFile(ctx context.Context, wavPath string) ([]byte, error) {
	ctx = services.WithStage(services.WithSource(ctx, wavPath), StageEncode)
	if l.encoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, StageEncode, "", "no encoder configured", nil)
	}
	logger := logging.WithContext(ctx, l.logger)
	sampler := logging.NewProgressSampler(5)
	l.listener.EncodeStarted()
	data, err := l.encoder.EncodeBytes(ctx, wavPath, func(pct int) {
		if sampler.ShouldLog(float64(pct), StageEncode) {
			logger.Debug("encode progress", logging.Int("percent", pct))
		}
		l.listener.EncodeUpdate(pct)
	})
	if err != nil {
		return nil, err
	}
	l.listener.EncodeComplete(data)
	return data, nil
}

// AddMetadata returns mp3 with its ID3v2 tag replaced by one built from meta.
func (l *Library) AddMetadata(ctx context.Context, mp3 []byte, meta chapters.MetaData) ([]byte, error) {
	ctx = services.WithStage(ctx, StageAddMetadata)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(mp3) == 0 {
		return nil, services.Wrap(services.ErrValidation, StageAddMetadata, "", "no audio data", nil)
	}
	l.listener.AddMetadataStarted()
	out, err := id3.Apply(mp3, meta, l.tagOpts)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, l.logger).Debug("metadata added",
		logging.Int("chapters", len(meta.Chapters)),
		logging.Int("tag_bytes", id3.TagLength(out)),
	)
	l.listener.AddMetadataComplete()
	return out, nil
}

// WriteMP3 writes data to path in fixed-size chunks, reporting progress.
func (l *Library) WriteMP3(ctx context.Context, data []byte, path string) error {
	ctx = services.WithStage(ctx, StageWriteMP3)
	if err := ctx.Err(); err != nil {
		return err
	}
	l.listener.WriteMP3Started()
	err := fileutil.WriteChunked(path, data, l.chunkSize, func(pct int) {
		l.listener.WriteMP3Progress(pct)
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, StageWriteMP3, "write", path, err)
	}
	l.listener.WriteMP3Complete()
	return nil
}

// StartEncode runs EncodeFile on a goroutine. The result arrives through
// Listener.EncodeComplete; the returned channel yields the error, if any,
// and is then closed.
func (l *Library) StartEncode(ctx context.Context, wavPath string) <-chan error {
	return l.async(func() error {
		_, err := l.EncodeFile(ctx, wavPath)
		return err
	})
}

// StartReadChapters runs ReadChapters on a goroutine.
func (l *Library) StartReadChapters(ctx context.Context, wavPath string) <-chan error {
	return l.async(func() error {
		_, err := l.ReadChapters(ctx, wavPath)
		return err
	})
}

// StartAddMetadata runs AddMetadata on a goroutine. On success the tagged
// bytes are passed to result before the channel closes.
func (l *Library) StartAddMetadata(ctx context.Context, mp3 []byte, meta chapters.MetaData, result func([]byte)) <-chan error {
	return l.async(func() error {
		out, err := l.AddMetadata(ctx, mp3, meta)
		if err == nil && result != nil {
			result(out)
		}
		return err
	})
}

// StartWriteMP3 runs WriteMP3 on a goroutine.
func (l *Library) StartWriteMP3(ctx context.Context, data []byte, path string) <-chan error {
	return l.async(func() error {
		return l.WriteMP3(ctx, data, path)
	})
}

func (l *Library) async(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				done <- errors.New("pipeline operation panicked")
				l.logger.Error("pipeline operation panicked", logging.Any("panic", r))
			}
		}()
		if err := fn(); err != nil {
			done <- err
		}
	}()
	return done
}
