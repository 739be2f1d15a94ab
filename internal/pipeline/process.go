package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chapters/internal/chapters"
	"chapters/internal/history"
	"chapters/internal/logging"
	"chapters/internal/services"
	"chapters/internal/textutil"
)

// History is the subset of the episode store used by Process.
type History interface {
	Record(ctx context.Context, ep history.Episode) (*history.Episode, error)
	SuggestNext(ctx context.Context, podcastTitle string) (int, error)
}

// Job describes one end-to-end conversion.
type Job struct {
	Source string
	// Output defaults to the source name with an .mp3 extension inside
	// OutputDir, or beside the source when OutputDir is empty.
	Output    string
	OutputDir string
	// NameFromMetadata names a defaulted output "<NNN> - <title>.mp3" when
	// the resolved metadata has an episode title.
	NameFromMetadata bool
	// Overrides win over values guessed from the file name.
	Overrides           chapters.MetaData
	DefaultPodcastTitle string
	SkipChapters        bool
	RunID               string
}

// Result summarises a completed job.
type Result struct {
	Output string
	Size   int64
	Meta   chapters.MetaData
	RunID  string
}

// DefaultOutputPath returns dir/<source base>.mp3, using the source
// directory when dir is empty.
func DefaultOutputPath(source, dir string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3"
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, base)
}

// ResolveMetadata merges overrides, the file name guess, the default podcast
// title and, when history is configured, the suggested next episode number.
func (l *Library) ResolveMetadata(ctx context.Context, job Job) chapters.MetaData {
	ctx = services.WithStage(ctx, StageGuess)
	meta := job.Overrides.Merge(l.GuessPodcastInfo(job.Source))
	if meta.PodcastTitle == "" {
		meta.PodcastTitle = strings.TrimSpace(job.DefaultPodcastTitle)
	}
	if meta.EpisodeNumber == 0 && meta.PodcastTitle != "" && l.history != nil {
		next, err := l.history.SuggestNext(ctx, meta.PodcastTitle)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, l.logger), "episode suggestion failed", "history_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the history database or disable history"),
			)
		} else if next > 0 {
			meta.EpisodeNumber = next
		}
	}
	return meta
}

// Process guesses metadata, reads chapters and encodes concurrently, tags
// the audio, writes the MP3 and records the episode.
func (l *Library) Process(ctx context.Context, job Job) (*Result, error) {
	if strings.TrimSpace(job.Source) == "" {
		return nil, services.Wrap(services.ErrValidation, "process", "", "source path required", nil)
	}
	runID := job.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithSource(services.WithRunID(ctx, runID), job.Source)
	logger := logging.WithContext(ctx, l.logger)

	meta := l.ResolveMetadata(ctx, job)
	output := job.Output
	if strings.TrimSpace(output) == "" {
		output = DefaultOutputPath(job.Source, job.OutputDir)
		if job.NameFromMetadata {
			if name := textutil.EpisodeFileName(meta.EpisodeNumber, meta.EpisodeTitle); name != "" {
				output = filepath.Join(filepath.Dir(output), name+".mp3")
			}
		}
	}
	if samePath(output, job.Source) {
		return nil, services.Wrap(services.ErrValidation, "process", "", "output would overwrite the source", nil)
	}

	logger.Info("processing episode",
		logging.String("podcast", meta.PodcastTitle),
		logging.Int("episode", meta.EpisodeNumber),
		logging.String("title", meta.EpisodeTitle),
		logging.String("output", output),
	)

	var (
		list  []chapters.Chapter
		audio []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	if !job.SkipChapters && len(job.Overrides.Chapters) == 0 {
		g.Go(func() error {
			var err error
			list, err = l.ReadChapters(gctx, job.Source)
			return err
		})
	}
	g.Go(func() error {
		var err error
		audio, err = l.EncodeFile(gctx, job.Source)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if job.SkipChapters {
		meta.Chapters = nil
	} else if len(list) > 0 {
		meta.Chapters = list
	}

	tagged, err := l.AddMetadata(ctx, audio, meta)
	if err != nil {
		return nil, err
	}
	if err := l.WriteMP3(ctx, tagged, output); err != nil {
		return nil, err
	}

	result := &Result{
		Output: output,
		Size:   int64(len(tagged)),
		Meta:   meta,
		RunID:  runID,
	}
	logger.Info("episode written",
		logging.String("output", output),
		logging.String("size", humanize.Bytes(uint64(result.Size))),
		logging.Int("chapters", len(meta.Chapters)),
	)
	l.record(ctx, job, result)
	return result, nil
}

func (l *Library) record(ctx context.Context, job Job, result *Result) {
	if l.history == nil {
		return
	}
	ctx = services.WithStage(ctx, StageHistory)
	duration := 0
	if n := len(result.Meta.Chapters); n > 0 {
		duration = result.Meta.Chapters[n-1].End
	}
	_, err := l.history.Record(ctx, history.Episode{
		RunID:         result.RunID,
		PodcastTitle:  result.Meta.PodcastTitle,
		EpisodeNumber: result.Meta.EpisodeNumber,
		EpisodeTitle:  result.Meta.EpisodeTitle,
		SourcePath:    job.Source,
		OutputPath:    result.Output,
		SizeBytes:     result.Size,
		ChapterCount:  len(result.Meta.Chapters),
		DurationMs:    duration,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "history record failed", "history_write_failed",
			logging.Error(err),
		)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
