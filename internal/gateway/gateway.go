package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quickscribe/internal/api"
	"quickscribe/internal/config"
	"quickscribe/internal/dispatch"
	"quickscribe/internal/jobs"
	"quickscribe/internal/language"
	"quickscribe/internal/logging"
	"quickscribe/internal/storage"
)

// ErrNotDispatchable is returned when a dispatch is requested for a job
// that is not in the pending state.
var ErrNotDispatchable = errors.New("job is not pending")

// WorkerClient is the slice of the worker HTTP client the gateway uses.
type WorkerClient interface {
	Dispatch(ctx context.Context, job *jobs.Job, audioURL string) error
	JobExists(ctx context.Context, jobID string) (bool, error)
}

// SubmitInput describes one relay-mediated audio upload. JobID is
// optional: callers may bring their own identifier, otherwise one is
// minted.
type SubmitInput struct {
	JobID        string
	Filename     string
	ContentType  string
	Size         int64
	Reader       io.Reader
	Task         string
	Language     string
	SpeakerCount int
	Diarize      bool
}

// Gateway coordinates uploads, job creation, and worker dispatch.
type Gateway struct {
	cfg        *config.Config
	store      *jobs.Store
	objects    storage.ObjectStore
	worker     WorkerClient
	dispatcher *dispatch.Dispatcher
	uploads    *uploadSessions
	logger     *slog.Logger
}

func New(cfg *config.Config, store *jobs.Store, objects storage.ObjectStore, workerClient WorkerClient, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:        cfg,
		store:      store,
		objects:    objects,
		worker:     workerClient,
		dispatcher: dispatcher,
		uploads:    newUploadSessions(cfg.Paths.DataDir),
		logger:     logging.NewComponentLogger(logger, "gateway"),
	}
}

// Submit stores the uploaded audio, records the job, and dispatches it
// to the worker. The job survives a failed dispatch in the failed state
// so the client learns the outcome from the status endpoint.
func (g *Gateway) Submit(ctx context.Context, input SubmitInput) (*jobs.Job, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("submit: no audio payload")
	}

	job, err := g.createJob(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := g.objects.Put(ctx, job.StorageKey, input.Reader, input.Size, input.ContentType); err != nil {
		g.failJob(ctx, job.JobID, "upload to storage failed")
		return nil, fmt.Errorf("submit %s: %w", job.JobID, err)
	}

	if err := g.DispatchJob(ctx, job.JobID); err != nil {
		// Return the stored (now failed) job so callers can surface its id.
		stored, gerr := g.store.Get(ctx, job.JobID)
		if gerr != nil || stored == nil {
			return nil, err
		}
		return stored, err
	}
	return g.store.Get(ctx, job.JobID)
}

// Presign records a pending job and mints a direct-upload URL for its
// object key. The client uploads on its own and then requests dispatch.
func (g *Gateway) Presign(ctx context.Context, req api.PresignRequest, opts SubmitInput) (*api.PresignResponse, error) {
	opts.Filename = req.Filename
	job, err := g.createJob(ctx, opts)
	if err != nil {
		return nil, err
	}

	url, err := g.objects.PresignPut(ctx, job.StorageKey, req.Filetype, g.cfg.PresignExpiry())
	if err != nil {
		g.failJob(ctx, job.JobID, "presign failed")
		return nil, fmt.Errorf("presign %s: %w", job.JobID, err)
	}

	g.logger.Info("presigned upload issued",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("key", job.StorageKey))
	return &api.PresignResponse{URL: url, JobID: job.JobID, StorageKey: job.StorageKey}, nil
}

// DispatchJob hands a pending job to the worker. On exhausted retries
// the worker is probed for the job: an ambiguous failure (timeout after
// the worker accepted) must not produce a false failure record.
func (g *Gateway) DispatchJob(ctx context.Context, jobID string) error {
	job, err := g.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", jobs.ErrNotFound, jobID)
	}
	if job.Status != jobs.StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrNotDispatchable, jobID, job.Status)
	}

	if err := g.store.SetStatus(ctx, jobID, jobs.StatusProcessing); err != nil {
		return err
	}

	// A presigned download spares the worker bucket credentials; backends
	// without presigning fall back to the storage key.
	audioURL, err := g.objects.PresignGet(ctx, job.StorageKey, g.cfg.PresignExpiry())
	if err != nil {
		audioURL = ""
	}

	if err := g.worker.Dispatch(ctx, job, audioURL); err != nil {
		if exists, probeErr := g.worker.JobExists(ctx, jobID); probeErr == nil && exists {
			g.logger.Warn("dispatch reported failure but worker holds the job",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
			return nil
		}
		g.failJob(ctx, jobID, "dispatch to worker failed: "+err.Error())
		return fmt.Errorf("dispatch %s: %w", jobID, err)
	}
	return nil
}

// NotifyUploaded completes a presigned flow: the client finished its
// direct upload and the pending job can go to the worker.
func (g *Gateway) NotifyUploaded(ctx context.Context, jobID string) error {
	return g.DispatchJob(ctx, jobID)
}

// Status returns the stored job, or (nil, nil) for unknown ids.
func (g *Gateway) Status(ctx context.Context, jobID string) (*jobs.Job, error) {
	return g.store.Get(ctx, jobID)
}

func (g *Gateway) createJob(ctx context.Context, input SubmitInput) (*jobs.Job, error) {
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, fmt.Errorf("submit: filename is required")
	}

	task, ok := jobs.ParseTask(input.Task)
	if !ok {
		return nil, fmt.Errorf("submit: unknown task %q", input.Task)
	}

	jobID := strings.TrimSpace(input.JobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := &jobs.Job{
		JobID:          jobID,
		Task:           task,
		Language:       language.Normalize(input.Language),
		SpeakerCount:   input.SpeakerCount,
		Diarize:        input.Diarize,
		StorageKey:     storage.ObjectKey(jobID, filename),
		SourceFilename: filename,
	}
	created, err := g.store.Create(ctx, job)
	if err != nil {
		return nil, err
	}
	g.logger.Info("job created",
		logging.String(logging.FieldJobID, created.JobID),
		logging.String("filename", filename))
	return created, nil
}

// failJob records a terminal failure and pushes the update to any
// already-connected subscribers.
func (g *Gateway) failJob(ctx context.Context, jobID, message string) {
	if err := g.store.MarkFailed(ctx, jobID, message); err != nil {
		g.logger.Error("mark failed", logging.Error(err),
			logging.String(logging.FieldJobID, jobID))
		return
	}
	if job, err := g.store.Get(ctx, jobID); err == nil && job != nil {
		g.dispatcher.Publish(api.UpdateForJob(job))
	}
}
