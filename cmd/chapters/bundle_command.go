package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chapters/internal/bundle"
	"chapters/internal/deps"
	"chapters/internal/preflight"
	"chapters/internal/services"
)

func newBundleCommand(ctx *commandContext) *cobra.Command {
	var variantFlag string
	var printArgs bool
	var distDir string
	var projectDir string
	var noClean bool
	var confirm bool
	var console bool

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Package Chapters with the LAME encoder and license files",
		Long: "Compile the Chapters executable for the configured target and assemble\n" +
			"<dist>/<name>/ with the embedded binaries and data files.\n\n" +
			"Variant \"full\" ships LICENSE and COPYING; variant \"license\" ships LICENSE only.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := bundle.ParseVariant(variantFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			m := bundle.FromConfig(cfg.Bundle, variant)
			if strings.TrimSpace(distDir) != "" {
				m.DistDir = distDir
			}
			if noClean {
				m.Clean = false
			}
			if confirm {
				m.NoConfirm = false
			}
			if console {
				m.Windowed = false
			}

			out := cmd.OutOrStdout()
			if printArgs {
				fmt.Fprintln(out, strings.Join(m.Args(bundle.PathSeparator()), " "))
				return nil
			}

			toolchain := deps.CheckBinaries([]deps.Requirement{deps.Toolchain()})[0]
			if !toolchain.Available {
				return services.Wrap(services.ErrNotFound, "bundle", "toolchain", toolchain.Detail, nil)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			builder := bundle.NewBuilder(
				bundle.WithLogger(logger),
				bundle.WithProjectDir(projectDir),
				bundle.WithGoBinary(toolchain.Command),
			)
			if dist := preflight.CheckCreatableDirectory("Dist directory", builder.ResolvePath(m.DistDir)); !dist.Passed {
				return services.Wrap(services.ErrConfiguration, "bundle", "preflight", dist.Detail, nil)
			}
			report, err := builder.Build(cmd.Context(), m)
			if err != nil {
				return err
			}
			if err := bundle.Verify(report.BundleDir, m); err != nil {
				return err
			}

			fmt.Fprintf(out, "Bundle ready: %s\n", report.BundleDir)
			fmt.Fprintf(out, "  executable: %s\n", report.Executable)
			fmt.Fprintf(out, "  embedded:   %d files\n", len(report.Embedded))
			fmt.Fprintf(out, "  size:       %s\n", humanize.Bytes(uint64(report.Size)))
			fmt.Fprintf(out, "  elapsed:    %s\n", report.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&variantFlag, "variant", string(bundle.VariantFull), "License variant: license (1) or full (2)")
	cmd.Flags().BoolVar(&printArgs, "print-args", false, "Print the packaging arguments and exit")
	cmd.Flags().StringVar(&distDir, "dist", "", "Output directory (default bundle.dist_dir)")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "Directory relative manifest paths resolve against (default: working directory)")
	cmd.Flags().BoolVar(&noClean, "no-clean", false, "Keep the build cache from previous runs")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Ask before replacing an existing bundle")
	cmd.Flags().BoolVar(&console, "console", false, "Build a console executable instead of a windowed one")
	return cmd
}
