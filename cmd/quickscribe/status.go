package main

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"quickscribe/internal/api"
)

func newStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show relay health and job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.resolveClient()
			if err != nil {
				return err
			}

			var stats api.StatsResponse
			if err := client.get(cmd.Context(), "/healthz", &stats); err != nil {
				return err
			}

			writer := newTable(cmd)
			writer.AppendHeader(table.Row{"Status", "Jobs"})
			total := 0
			statuses := make([]string, 0, len(stats.Counts))
			for status := range stats.Counts {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				writer.AppendRow(table.Row{status, stats.Counts[status]})
				total += stats.Counts[status]
			}
			writer.AppendFooter(table.Row{"total", total})
			writer.Render()
			return nil
		},
	}
}

// newTable returns a renderer that uses box drawing on terminals and a
// plain style when output is piped.
func newTable(cmd *cobra.Command) table.Writer {
	writer := table.NewWriter()
	writer.SetOutputMirror(cmd.OutOrStdout())
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		writer.SetStyle(table.StyleRounded)
	} else {
		writer.SetStyle(table.StyleDefault)
	}
	return writer
}
