package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Task selects the worker operation requested at submission time.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Job represents one unit of submitted processing work persisted in SQLite.
//
// JobID is the correlation key across upload, worker dispatch, callback, and
// notification. It is written exactly once, at submission time; every later
// write is a status transition or the terminal result payload.
type Job struct {
	JobID          string
	Status         Status
	Task           Task
	Language       string
	SpeakerCount   int
	Diarize        bool
	StorageKey     string
	SourceFilename string
	ResultJSON     string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseTask converts a string into a known Task, defaulting to transcribe.
func ParseTask(value string) (Task, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(TaskTranscribe):
		return TaskTranscribe, true
	case string(TaskTranslate):
		return TaskTranslate, true
	default:
		return TaskTranscribe, false
	}
}

// IsTerminal reports whether a status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsTerminal reports whether the job has reached a terminal state.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// HasResult reports whether a result payload has been written.
func (j Job) HasResult() bool {
	return strings.TrimSpace(j.ResultJSON) != ""
}
