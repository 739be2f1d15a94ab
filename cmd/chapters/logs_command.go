package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chapters/internal/logging"
	"chapters/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines from chapters.log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			opts := logs.TailOptions{Offset: -1, Limit: lines, Match: strings.TrimSpace(runID)}
			out := cmd.OutOrStdout()
			for {
				result, err := logs.Tail(cmd.Context(), path, opts)
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if !follow {
					return nil
				}
				opts = logs.TailOptions{Offset: result.Offset, Match: opts.Match, Wait: 2 * time.Second}
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines for this run ID")
	return cmd
}
