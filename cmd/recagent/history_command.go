package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recagent/internal/catalog"
)

type historyEntry struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Outcome   string     `json:"outcome"`
	Path      string     `json:"path"`
	Device    string     `json:"device,omitempty"`
	Quality   string     `json:"quality,omitempty"`
	Forced    bool       `json:"forced"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent capture sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				entries := make([]historyEntry, 0, len(sessions))
				for _, s := range sessions {
					entries = append(entries, toHistoryEntry(s))
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(sessions, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}

func toHistoryEntry(s catalog.Session) historyEntry {
	return historyEntry{
		ID:        s.ID,
		Mode:      s.Mode,
		Outcome:   s.Outcome,
		Path:      s.Path(),
		Device:    s.Device,
		Quality:   s.Quality,
		Forced:    s.Forced,
		Error:     s.Error,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}

func renderHistory(sessions []catalog.Session, colorize bool) string {
	title := cases.Title(language.Und)
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		outcome := title.String(s.Outcome)
		if s.Forced {
			outcome += " (killed)"
		}
		if colorize {
			outcome = colorOutcome(s.Outcome, outcome)
		}
		rows = append(rows, []string{
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			title.String(s.Mode),
			outcome,
			formatSessionLength(s),
			s.Path(),
		})
	}
	return renderTable(
		[]string{"Started", "Mode", "Outcome", "Length", "File"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func formatSessionLength(s catalog.Session) string {
	if s.EndedAt == nil {
		return "-"
	}
	return s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
}
