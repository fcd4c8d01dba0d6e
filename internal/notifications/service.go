package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quickscribe/internal/config"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
)

// Service sends operator-facing push notifications for job outcomes.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job *jobs.Job) error
	NotifyJobFailed(ctx context.Context, job *jobs.Job) error
	TestNotification(ctx context.Context) error
}

// NewService builds the ntfy-backed service, or a no-op when no topic
// is configured.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return &noopService{}
	}
	return &ntfyService{
		topic:      cfg.Notifications.NtfyTopic,
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
		client: &http.Client{
			Timeout: time.Duration(cfg.Notifications.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "notifications"),
	}
}

type ntfyService struct {
	topic      string
	completion bool
	errors     bool
	client     *http.Client
	logger     *slog.Logger
}

func (s *ntfyService) NotifyJobCompleted(ctx context.Context, job *jobs.Job) error {
	if !s.completion {
		return nil
	}
	message := fmt.Sprintf("Transcription finished: %s", jobLabel(job))
	return s.send(ctx, message, "Transcription complete", "white_check_mark")
}

func (s *ntfyService) NotifyJobFailed(ctx context.Context, job *jobs.Job) error {
	if !s.errors {
		return nil
	}
	message := fmt.Sprintf("Transcription failed: %s", jobLabel(job))
	if job != nil && job.ErrorMessage != "" {
		message += "\n" + job.ErrorMessage
	}
	return s.send(ctx, message, "Transcription failed", "rotating_light")
}

func (s *ntfyService) TestNotification(ctx context.Context) error {
	return s.send(ctx, "quickscribe notifications are working", "Test notification", "wave")
}

func (s *ntfyService) send(ctx context.Context, message, title, tags string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send notification: status %d", resp.StatusCode)
	}
	s.logger.Debug("notification sent", logging.String("title", title))
	return nil
}

func jobLabel(job *jobs.Job) string {
	if job == nil {
		return "unknown job"
	}
	if job.SourceFilename != "" {
		return job.SourceFilename
	}
	return job.JobID
}

type noopService struct{}

func (*noopService) NotifyJobCompleted(context.Context, *jobs.Job) error { return nil }
func (*noopService) NotifyJobFailed(context.Context, *jobs.Job) error    { return nil }
func (*noopService) TestNotification(context.Context) error              { return nil }
