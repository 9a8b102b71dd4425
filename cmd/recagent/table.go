package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"recagent/internal/recorder"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorStatus(passed bool, label string) string {
	if passed {
		return text.FgGreen.Sprint(label)
	}
	return text.FgRed.Sprint(label)
}

func colorOutcome(outcome, label string) string {
	switch outcome {
	case recorder.OutcomeCompleted, recorder.OutcomeStopped:
		return text.FgGreen.Sprint(label)
	case recorder.OutcomeFailed:
		return text.FgRed.Sprint(label)
	default:
		return text.FgYellow.Sprint(label)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
