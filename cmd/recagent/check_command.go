package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recagent/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, the encoder and the control service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				if colorize {
					status = colorStatus(r.Passed, status)
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New(pluralChecks(len(failed)) + " failed")
			}
			return nil
		},
	}
}

func pluralChecks(n int) string {
	if n == 1 {
		return "1 check"
	}
	return fmt.Sprintf("%d checks", n)
}
