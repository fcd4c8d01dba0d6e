package api

import (
	"testing"
	"time"

	"quickscribe/internal/jobs"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	job := &jobs.Job{
		JobID:          "job-1",
		Status:         jobs.StatusCompleted,
		Task:           jobs.TaskTranscribe,
		Language:       "en",
		Diarize:        true,
		StorageKey:     "input/job-1/talk.mp3",
		SourceFilename: "talk.mp3",
		ResultJSON:     `{"segments":[]}`,
		CreatedAt:      created,
		UpdatedAt:      created,
	}

	view := FromJob(job)
	if view.JobID != "job-1" || view.Status != "completed" {
		t.Errorf("view = %+v", view)
	}
	if string(view.Result) != `{"segments":[]}` {
		t.Errorf("result = %s", view.Result)
	}
	if view.CreatedAt == "" {
		t.Error("created timestamp missing")
	}
}

func TestUpdateForJob(t *testing.T) {
	job := &jobs.Job{
		JobID:      "job-2",
		Status:     jobs.StatusCompleted,
		ResultJSON: `{"segments":[{"start":0,"end":1.5,"text":"hi","speaker":"S1"}],"language":"en","duration":1.5}`,
	}

	update := UpdateForJob(job)
	if update.JobID != "job-2" || update.Status != "completed" {
		t.Errorf("update = %+v", update)
	}
	if update.Result == nil || len(update.Result.Segments) != 1 {
		t.Fatalf("result = %+v", update.Result)
	}
	if update.Result.Segments[0].Speaker != "S1" {
		t.Errorf("segment = %+v", update.Result.Segments[0])
	}
}

func TestUpdateForJobMalformedResult(t *testing.T) {
	job := &jobs.Job{JobID: "job-3", Status: jobs.StatusCompleted, ResultJSON: "{broken"}
	update := UpdateForJob(job)
	if update.Result != nil {
		t.Errorf("malformed payload should yield nil result, got %+v", update.Result)
	}
}

func TestUpdateForJobFailure(t *testing.T) {
	job := &jobs.Job{JobID: "job-4", Status: jobs.StatusFailed, ErrorMessage: "boom"}
	update := UpdateForJob(job)
	if update.Status != "failed" || update.Error != "boom" {
		t.Errorf("update = %+v", update)
	}
}
