package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"quickscribe/internal/api"
	"quickscribe/internal/language"
)

func newJobsCommand(opts *globalOptions) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs known to the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.resolveClient()
			if err != nil {
				return err
			}

			path := "/api/jobs"
			if statusFilter != "" {
				path += "?status=" + statusFilter
			}
			var list api.JobListResponse
			if err := client.get(cmd.Context(), path, &list); err != nil {
				return err
			}
			if len(list.Jobs) == 0 {
				cmd.Println("no jobs")
				return nil
			}

			writer := newTable(cmd)
			writer.AppendHeader(table.Row{"Job", "Status", "Task", "Language", "File", "Updated"})
			writer.SetColumnConfigs([]table.ColumnConfig{
				{Name: "File", WidthMax: 40, WidthMaxEnforcer: text.Trim},
			})
			for _, job := range list.Jobs {
				writer.AppendRow(table.Row{
					job.JobID,
					job.Status,
					job.Task,
					language.Name(job.Language),
					job.SourceFilename,
					job.UpdatedAt,
				})
			}
			writer.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (comma separated)")
	cmd.AddCommand(newJobsShowCommand(opts))
	return cmd
}

func newJobsShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job's status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.resolveClient()
			if err != nil {
				return err
			}

			status, err := client.status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cmd.Printf("job:    %s\n", status.JobID)
			cmd.Printf("status: %s\n", status.Status)
			if status.Error != "" {
				cmd.Printf("error:  %s\n", status.Error)
			}
			if status.Result != nil {
				cmd.Printf("language: %s\n", language.Name(status.Result.Language))
				for _, segment := range status.Result.Segments {
					if segment.Speaker != "" {
						cmd.Printf("[%7.2fs] %s: %s\n", segment.Start, segment.Speaker, segment.Text)
					} else {
						cmd.Printf("[%7.2fs] %s\n", segment.Start, segment.Text)
					}
				}
			}
			return nil
		},
	}
}
