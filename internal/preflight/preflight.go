package preflight

import (
	"context"
	"strings"

	"chapters/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory checks for the given config. The bundle
// dist directory is only checked when includeBundle is set.
func RunAll(ctx context.Context, cfg *config.Config, includeBundle bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}

	if strings.TrimSpace(cfg.Paths.OutputDir) != "" {
		results = append(results, CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir))
	}
	if cfg.History.Enabled {
		results = append(results, CheckCreatableDirectory("History database", parentDir(cfg.HistoryPath())))
	}
	if includeBundle {
		results = append(results, CheckCreatableDirectory("Dist directory", cfg.Bundle.DistDir))
	}
	if err := ctx.Err(); err != nil {
		results = append(results, Result{Name: "Preflight", Detail: err.Error()})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
