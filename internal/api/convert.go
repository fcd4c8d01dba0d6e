package api

import (
	"encoding/json"

	"quickscribe/internal/jobs"
)

// FromJob converts a stored job into its transport representation.
func FromJob(job *jobs.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		JobID:          job.JobID,
		Status:         string(job.Status),
		Task:           string(job.Task),
		Language:       job.Language,
		SpeakerCount:   job.SpeakerCount,
		Diarize:        job.Diarize,
		StorageKey:     job.StorageKey,
		SourceFilename: job.SourceFilename,
		ErrorMessage:   job.ErrorMessage,
	}
	if job.ResultJSON != "" {
		view.Result = json.RawMessage(job.ResultJSON)
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.Format(dateTimeFormat)
	}
	return view
}

// FromJobs converts a slice of stored jobs.
func FromJobs(items []*jobs.Job) []JobView {
	if len(items) == 0 {
		return nil
	}
	views := make([]JobView, 0, len(items))
	for _, item := range items {
		views = append(views, FromJob(item))
	}
	return views
}

// UpdateForJob builds the push payload for a job's current state.
func UpdateForJob(job *jobs.Job) JobUpdate {
	update := JobUpdate{
		JobID:  job.JobID,
		Status: string(job.Status),
		Error:  job.ErrorMessage,
	}
	if job.ResultJSON != "" {
		var result Result
		if err := json.Unmarshal([]byte(job.ResultJSON), &result); err == nil {
			update.Result = &result
		}
	}
	return update
}
