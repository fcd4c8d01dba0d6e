package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"quickscribe/internal/api"
	"quickscribe/internal/jobs"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Stream live updates for a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.resolveClient()
			if err != nil {
				return err
			}
			return watchJob(cmd, client, args[0])
		},
	}
}

// watchJob subscribes to the job's live channel and prints updates
// until a terminal one arrives. The stored result is replayed by the
// relay if the job already finished, so late watching is safe.
func watchJob(cmd *cobra.Command, client *apiClient, jobID string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), client.wsURL(jobID), nil)
	if err != nil {
		return fmt.Errorf("connect live channel: %w", err)
	}
	defer conn.Close()

	for {
		if deadline, ok := cmd.Context().Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		} else {
			_ = conn.SetReadDeadline(time.Now().Add(24 * time.Hour))
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("live channel closed: %w", err)
		}

		var event api.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if event.Type != api.EventTranscription || event.Data.JobID != jobID {
			continue
		}

		printUpdate(cmd, event.Data)
		if jobs.Status(event.Data.Status).IsTerminal() {
			return nil
		}
	}
}

func printUpdate(cmd *cobra.Command, update api.JobUpdate) {
	switch update.Status {
	case string(jobs.StatusFailed):
		cmd.Printf("job %s failed: %s\n", update.JobID, update.Error)
	case string(jobs.StatusCompleted):
		cmd.Printf("job %s completed\n", update.JobID)
		if update.Result != nil {
			for _, segment := range update.Result.Segments {
				if segment.Speaker != "" {
					cmd.Printf("[%7.2fs] %s: %s\n", segment.Start, segment.Speaker, segment.Text)
				} else {
					cmd.Printf("[%7.2fs] %s\n", segment.Start, segment.Text)
				}
			}
		}
	default:
		cmd.Printf("job %s is %s\n", update.JobID, update.Status)
	}
}
