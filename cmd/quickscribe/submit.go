package main

import (
	"github.com/spf13/cobra"
)

type submitOptions struct {
	task     string
	language string
	speakers int
	diarize  bool
	watch    bool
}

func newSubmitCommand(opts *globalOptions) *cobra.Command {
	var submit submitOptions

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Upload an audio file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.resolveClient()
			if err != nil {
				return err
			}

			submitted, err := client.upload(cmd.Context(), args[0], submit)
			if err != nil {
				return err
			}
			cmd.Printf("job %s submitted\n", submitted.JobID)

			if !submit.watch {
				return nil
			}
			return watchJob(cmd, client, submitted.JobID)
		},
	}
	cmd.Flags().StringVar(&submit.task, "task", "transcribe", "worker task (transcribe or translate)")
	cmd.Flags().StringVar(&submit.language, "language", "", "language hint (default auto-detect)")
	cmd.Flags().IntVar(&submit.speakers, "speakers", 0, "expected speaker count")
	cmd.Flags().BoolVar(&submit.diarize, "diarize", false, "attribute segments to speakers")
	cmd.Flags().BoolVar(&submit.watch, "watch", false, "stay connected and print the result when ready")
	return cmd
}
