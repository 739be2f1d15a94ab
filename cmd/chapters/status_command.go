package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chapters/internal/deps"
	"chapters/internal/preflight"
)

type statusView struct {
	ConfigPath     string             `json:"config_path"`
	ConfigExists   bool               `json:"config_exists"`
	EncoderVersion string             `json:"encoder_version,omitempty"`
	Dependencies   []deps.Status      `json:"dependencies"`
	Checks         []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show external tool availability and directory checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			view := statusView{
				ConfigPath:   ctx.configPath,
				ConfigExists: ctx.configExists,
				Dependencies: preflight.CheckSystemDeps(cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg, true),
			}
			if encoder := view.Dependencies[0]; encoder.Available {
				if version, err := preflight.EncoderVersion(cmd.Context(), encoder.Command); err == nil {
					view.EncoderVersion = version
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			configNote := view.ConfigPath
			if !view.ConfigExists {
				configNote += " (not found, using defaults)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configNote, colorize))
			if view.EncoderVersion != "" {
				fmt.Fprintln(out, renderStatusLine("Encoder", statusInfo, view.EncoderVersion, colorize))
			}
			fmt.Fprintln(out)

			depRows := make([][]string, 0, len(view.Dependencies))
			for _, s := range view.Dependencies {
				kind := statusOK
				switch {
				case !s.Available && s.Optional:
					kind = statusWarn
				case !s.Available:
					kind = statusError
				}
				depRows = append(depRows, []string{s.Name, statusKindLabel(kind), yesNo(!s.Optional), s.Command, s.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Status", "Required", "Command", "Detail"}, depRows, nil))

			checkRows := make([][]string, 0, len(view.Checks))
			for _, r := range view.Checks {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				checkRows = append(checkRows, []string{r.Name, statusKindLabel(kind), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))
			return nil
		},
	}
}
