package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chapters/internal/chapters"
	"chapters/internal/pipeline"
	"chapters/internal/preflight"
	"chapters/internal/services"
)

type chapterView struct {
	Index   int    `json:"index"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
	Name    string `json:"name"`
}

type guessView struct {
	EpisodeNumber int    `json:"episode_number,omitempty"`
	EpisodeTitle  string `json:"episode_title,omitempty"`
	Matched       bool   `json:"matched"`
}

// metadataFlags are the overrides shared by encode and tag.
type metadataFlags struct {
	podcastTitle  string
	episodeTitle  string
	episodeNumber int
}

func (f *metadataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.podcastTitle, "podcast-title", "", "Podcast title (TPE1); defaults to metadata.default_podcast_title")
	cmd.Flags().StringVar(&f.episodeTitle, "episode-title", "", "Episode title (TIT2); defaults to the title guessed from the file name")
	cmd.Flags().IntVar(&f.episodeNumber, "episode-number", 0, "Episode number (TRCK); defaults to the guessed or next recorded number")
}

func (f *metadataFlags) overrides() (chapters.MetaData, error) {
	if f.episodeNumber < 0 {
		return chapters.MetaData{}, services.Wrap(services.ErrValidation, "flags", "episode-number",
			fmt.Sprintf("must not be negative, got %d", f.episodeNumber), nil)
	}
	return chapters.MetaData{
		PodcastTitle:  strings.TrimSpace(f.podcastTitle),
		EpisodeTitle:  strings.TrimSpace(f.episodeTitle),
		EpisodeNumber: f.episodeNumber,
	}, nil
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read <wav>",
		Short: "List the chapter markers stored in a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.markerLibrary(nil)
			if err != nil {
				return err
			}
			list, err := lib.ReadChapters(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			views := make([]chapterView, 0, len(list))
			for i, c := range list {
				views = append(views, chapterView{Index: i, StartMs: c.Start, EndMs: c.End, Name: c.Name})
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No chapter markers found")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					strconv.Itoa(v.Index + 1),
					formatMillis(v.StartMs),
					formatMillis(v.EndMs),
					formatMillis(v.EndMs - v.StartMs),
					v.Name,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Length", "Name"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newGuessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "guess <file>",
		Short: "Show the episode number and title guessed from a file name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta := chapters.GuessPodcastInfo(args[0])
			view := guessView{
				EpisodeNumber: meta.EpisodeNumber,
				EpisodeTitle:  meta.EpisodeTitle,
				Matched:       meta.EpisodeNumber > 0 || meta.EpisodeTitle != "",
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			if !view.Matched {
				fmt.Fprintf(out, "No episode pattern in %q (expected \"<number> - <title>\")\n", filepath.Base(args[0]))
				return nil
			}
			fmt.Fprintf(out, "Episode number: %d\n", view.EpisodeNumber)
			fmt.Fprintf(out, "Episode title:  %s\n", view.EpisodeTitle)
			return nil
		},
	}
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var meta metadataFlags
	var output string
	var outputDir string
	var noChapters bool
	var nameFromMetadata bool

	cmd := &cobra.Command{
		Use:   "encode <wav>",
		Short: "Encode a WAV recording to a tagged, chaptered MP3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides, err := meta.overrides()
			if err != nil {
				return err
			}
			if strings.TrimSpace(outputDir) == "" {
				outputDir = cfg.Paths.OutputDir
			}

			checkCfg := *cfg
			checkCfg.Paths.OutputDir = outputDir
			if strings.TrimSpace(output) != "" {
				checkCfg.Paths.OutputDir = filepath.Dir(output)
			}
			if err := requirePreflight(preflight.RunAll(cmd.Context(), &checkCfg, false)); err != nil {
				return err
			}

			progress := newProgressReporter(cmd.ErrOrStderr(), !ctx.jsonOutput() && isTerminal(cmd.ErrOrStderr()))
			defer progress.finish()
			lib, release, err := ctx.encodingLibrary(progress.listener())
			if err != nil {
				return err
			}
			defer release()

			result, err := lib.Process(cmd.Context(), pipeline.Job{
				Source:              args[0],
				Output:              output,
				OutputDir:           outputDir,
				NameFromMetadata:    nameFromMetadata,
				Overrides:           overrides,
				DefaultPodcastTitle: cfg.Metadata.DefaultPodcastTitle,
				SkipChapters:        noChapters,
			})
			if err != nil {
				return err
			}
			progress.finish()

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d chapters)\n",
				result.Output, humanize.Bytes(uint64(result.Size)), len(result.Meta.Chapters))
			return nil
		},
	}

	meta.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output MP3 path")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the output when --output is not set (default paths.output_dir)")
	cmd.Flags().BoolVar(&noChapters, "no-chapters", false, "Skip reading WAV markers; write no CTOC or CHAP frames")
	cmd.Flags().BoolVar(&nameFromMetadata, "name-from-metadata", false, "Name the output \"NNN - Title.mp3\" from the episode metadata")
	return cmd
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	var meta metadataFlags
	var output string

	cmd := &cobra.Command{
		Use:   "tag <mp3> <wav>",
		Short: "Tag an existing MP3 with the chapters and episode info of a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides, err := meta.overrides()
			if err != nil {
				return err
			}
			mp3Path, wavPath := args[0], args[1]
			audio, err := os.ReadFile(mp3Path)
			if err != nil {
				if os.IsNotExist(err) {
					return services.Wrap(services.ErrNotFound, "tag", "read mp3", mp3Path, err)
				}
				return services.Wrap(services.ErrValidation, "tag", "read mp3", mp3Path, err)
			}

			lib, err := ctx.markerLibrary(nil)
			if err != nil {
				return err
			}
			list, err := lib.ReadChapters(cmd.Context(), wavPath)
			if err != nil {
				return err
			}
			resolved := overrides.Merge(lib.GuessPodcastInfo(wavPath))
			if resolved.PodcastTitle == "" {
				resolved.PodcastTitle = cfg.Metadata.DefaultPodcastTitle
			}
			resolved.Chapters = list

			tagged, err := lib.AddMetadata(cmd.Context(), audio, resolved)
			if err != nil {
				return err
			}
			target := mp3Path
			if strings.TrimSpace(output) != "" {
				target = output
			}
			if err := lib.WriteMP3(cmd.Context(), tagged, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s (%d chapters)\n", target, len(list))
			return nil
		},
	}

	meta.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the tagged copy here instead of replacing the MP3")
	return cmd
}

func requirePreflight(results []preflight.Result) error {
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		details = append(details, r.Name+": "+r.Detail)
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(details, "; "), nil)
}
