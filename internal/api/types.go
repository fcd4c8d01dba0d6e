package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Segment is one transcript span with optional speaker attribution.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Result is the structured transcription payload produced by the worker.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
}

// JobUpdate is the `{jobId, status, result}` shape shared by the worker
// callback and the live-channel push event.
type JobUpdate struct {
	JobID  string  `json:"jobId"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Event wraps a JobUpdate for delivery over the live channel.
type Event struct {
	Type string    `json:"type"`
	Data JobUpdate `json:"data"`
}

// EventTranscription names the push event carrying a finished job payload.
const EventTranscription = "transcription"

// JoinMessage is the explicit room-join frame a client may send after
// connecting without a job id in the path.
type JoinMessage struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}

// SubmitResponse acknowledges an accepted upload.
type SubmitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message,omitempty"`
}

// PresignRequest asks for a direct-to-storage upload URL.
type PresignRequest struct {
	Filename string `json:"filename"`
	Filetype string `json:"filetype"`
}

// PresignResponse carries a time-limited write URL for one object.
type PresignResponse struct {
	URL        string `json:"url"`
	JobID      string `json:"jobId"`
	StorageKey string `json:"storageKey"`
}

// CallbackRequest is the worker's asynchronous result delivery.
type CallbackRequest struct {
	JobID  string  `json:"jobId"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// StatusResponse answers a pull-style status poll.
type StatusResponse struct {
	JobID  string  `json:"jobId"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// JobView describes a stored job in a transport-friendly format.
type JobView struct {
	JobID          string          `json:"jobId"`
	Status         string          `json:"status"`
	Task           string          `json:"task"`
	Language       string          `json:"language,omitempty"`
	SpeakerCount   int             `json:"speakerCount,omitempty"`
	Diarize        bool            `json:"diarize"`
	StorageKey     string          `json:"storageKey,omitempty"`
	SourceFilename string          `json:"sourceFilename,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// StatsResponse provides job counts grouped by status.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	JobDBPath    string         `json:"jobDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Subscribers  int            `json:"subscribers"`
	Counts       map[string]int `json:"counts"`
}

// ErrorResponse is the structured `{error}` body for every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
