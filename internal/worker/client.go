package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"quickscribe/internal/config"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
	"quickscribe/internal/retry"
)

// DispatchRequest is the payload handed to the transcription worker.
// AudioURL is a presigned download link when the backend supports it;
// workers sharing bucket credentials can fall back to the storage key.
type DispatchRequest struct {
	JobID        string `json:"jobId"`
	Bucket       string `json:"bucket,omitempty"`
	StorageKey   string `json:"storageKey"`
	AudioURL     string `json:"audioUrl,omitempty"`
	Task         string `json:"task"`
	Language     string `json:"language,omitempty"`
	SpeakerCount int    `json:"speakerCount,omitempty"`
	Diarize      bool   `json:"diarize"`
	CallbackURL  string `json:"callbackUrl"`
}

// Client talks to the external GPU transcription worker.
type Client struct {
	baseURL     string
	token       string
	bucket      string
	callbackURL string
	httpClient  *http.Client
	policy      retry.Policy
	logger      *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     cfg.Worker.URL,
		token:       cfg.Worker.Token,
		bucket:      cfg.Storage.Bucket,
		callbackURL: cfg.Worker.CallbackURL + "/api/callback",
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Worker.RequestTimeout) * time.Second,
		},
		policy: retry.Policy{
			Attempts: cfg.Worker.DispatchAttempts,
			Delay:    time.Duration(cfg.Worker.DispatchDelaySeconds) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "worker"),
	}
}

// Dispatch asks the worker to transcribe a stored job. Every failed
// attempt — connection errors and non-2xx responses alike — counts
// against the configured retry budget; only an unbuildable request
// aborts early.
func (c *Client) Dispatch(ctx context.Context, job *jobs.Job, audioURL string) error {
	payload := DispatchRequest{
		JobID:        job.JobID,
		Bucket:       c.bucket,
		StorageKey:   job.StorageKey,
		AudioURL:     audioURL,
		Task:         string(job.Task),
		Language:     job.Language,
		SpeakerCount: job.SpeakerCount,
		Diarize:      job.Diarize,
		CallbackURL:  c.callbackURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dispatch request: %w", err)
	}

	attempt := 0
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.Warn("retrying dispatch",
				logging.String(logging.FieldJobID, job.JobID),
				logging.Int(logging.FieldAttempt, attempt))
		}
		return c.post(ctx, c.baseURL+"/jobs", body)
	})
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", job.JobID, err)
	}

	c.logger.Info("job dispatched",
		logging.String(logging.FieldJobID, job.JobID),
		logging.Int(logging.FieldAttempt, attempt))
	return nil
}

// JobExists asks the worker whether it knows the job. Used to
// reconcile an exhausted dispatch: a timeout does not prove the worker
// never accepted the job.
func (c *Client) JobExists(ctx context.Context, jobID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return false, fmt.Errorf("build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("query worker: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, fmt.Errorf("query worker: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build dispatch request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to worker: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
