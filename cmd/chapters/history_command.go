package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chapters/internal/history"
	"chapters/internal/services"
)

type episodeView struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	PodcastTitle  string    `json:"podcast_title"`
	EpisodeNumber int       `json:"episode_number"`
	EpisodeTitle  string    `json:"episode_title"`
	SourcePath    string    `json:"source_path"`
	OutputPath    string    `json:"output_path"`
	SizeBytes     int64     `json:"size_bytes"`
	ChapterCount  int       `json:"chapter_count"`
	DurationMs    int       `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently encoded episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return services.Wrap(services.ErrConfiguration, "history", "", "history is disabled (history.enabled = false)", nil)
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			episodes, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			views := make([]episodeView, 0, len(episodes))
			for _, ep := range episodes {
				views = append(views, episodeView(ep))
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No episodes recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(views))
			now := time.Now()
			for _, v := range views {
				number := ""
				if v.EpisodeNumber > 0 {
					number = strconv.Itoa(v.EpisodeNumber)
				}
				rows = append(rows, []string{
					humanize.RelTime(v.CreatedAt, now, "ago", "from now"),
					v.PodcastTitle,
					number,
					v.EpisodeTitle,
					strconv.Itoa(v.ChapterCount),
					humanize.Bytes(uint64(v.SizeBytes)),
					v.OutputPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Podcast", "#", "Title", "Chapters", "Size", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of episodes to show")
	return cmd
}
