package preflight

import (
	"context"

	"recagent/internal/config"
	"recagent/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckEncoder(ctx, cfg.Encoder.Binary),
		CheckControlService(ctx, cfg.Remote.BaseURL),
	}
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

// CheckEncoder resolves the encoder and probes its version.
func CheckEncoder(ctx context.Context, binary string) Result {
	status := deps.EncoderStatus(ctx, binary)
	return Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
}
