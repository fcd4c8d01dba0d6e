package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quickscribe/internal/api"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
	"quickscribe/internal/rooms"
)

// TerminalHook runs after a job reaches a terminal state and its update
// has been fanned out. Hooks must not block for long.
type TerminalHook func(ctx context.Context, job *jobs.Job)

// Dispatcher fans finished-job updates out to room subscribers and
// replays the stored result to late joiners.
//
// The mutex orders room membership changes against fan-out: a Subscribe
// and a Publish for the same job cannot interleave, so a subscriber
// either sees the update via replay (result already stored) or via
// fan-out (joined before publish). Store writes always precede Publish.
type Dispatcher struct {
	mu       sync.Mutex
	store    *jobs.Store
	registry *rooms.Registry
	logger   *slog.Logger

	hookMu sync.Mutex
	hooks  []TerminalHook
}

func New(store *jobs.Store, registry *rooms.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// OnTerminal registers a hook invoked after each terminal update.
func (d *Dispatcher) OnTerminal(hook TerminalHook) {
	if hook == nil {
		return
	}
	d.hookMu.Lock()
	d.hooks = append(d.hooks, hook)
	d.hookMu.Unlock()
}

// Subscribe joins sub to the job's room and immediately replays the
// stored update when the job already finished. Unknown job ids are
// accepted: the job may not have been created yet from this node's
// perspective, and the subscriber will receive the update on publish.
func (d *Dispatcher) Subscribe(ctx context.Context, jobID string, sub rooms.Subscriber) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("subscribe: empty job id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.registry.Join(jobID, sub)

	job, err := d.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", jobID, err)
	}
	if job == nil || !job.Status.IsTerminal() {
		return nil
	}

	payload, err := encodeEvent(api.UpdateForJob(job))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", jobID, err)
	}
	if !sub.Send(payload) {
		d.logger.Warn("replay dropped", logging.String(logging.FieldJobID, jobID))
	} else {
		d.logger.Debug("replayed stored result", logging.String(logging.FieldJobID, jobID))
	}
	return nil
}

// Unsubscribe removes sub from every room it occupies.
func (d *Dispatcher) Unsubscribe(sub rooms.Subscriber) {
	d.registry.LeaveAll(sub)
}

// Complete applies a worker callback: persist the terminal state, fan
// the update out to the job's room, then run terminal hooks. Duplicate
// callbacks with identical payloads are acknowledged without re-writing;
// the update is still re-published so reconnected clients converge.
func (d *Dispatcher) Complete(ctx context.Context, req api.CallbackRequest) (*jobs.Job, error) {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return nil, fmt.Errorf("callback: empty job id")
	}

	var (
		job *jobs.Job
		err error
	)
	switch req.Status {
	case string(jobs.StatusCompleted):
		if req.Result == nil {
			return nil, fmt.Errorf("callback %s: completed without result", jobID)
		}
		resultJSON, merr := json.Marshal(req.Result)
		if merr != nil {
			return nil, fmt.Errorf("callback %s: encode result: %w", jobID, merr)
		}
		job, err = d.store.SetResult(ctx, jobID, jobs.StatusCompleted, string(resultJSON))
	case string(jobs.StatusFailed):
		message := strings.TrimSpace(req.Error)
		if message == "" {
			message = "worker reported failure"
		}
		// The store refuses to retract a stored success (ErrResultMismatch).
		if err = d.store.MarkFailed(ctx, jobID, message); err == nil {
			job, err = d.store.Get(ctx, jobID)
		}
	default:
		return nil, fmt.Errorf("callback %s: unsupported status %q", jobID, req.Status)
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobs.ErrNotFound
	}

	delivered := d.publish(api.UpdateForJob(job))
	d.logger.Info("terminal update dispatched",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String(logging.FieldStatus, string(job.Status)),
		logging.Int("delivered", delivered))

	d.runHooks(ctx, job)
	return job, nil
}

// Publish fans an already-persisted update out to its room. Exposed for
// non-callback paths that mutate job state (dispatch failure marking).
func (d *Dispatcher) Publish(update api.JobUpdate) int {
	return d.publish(update)
}

func (d *Dispatcher) publish(update api.JobUpdate) int {
	payload, err := encodeEvent(update)
	if err != nil {
		d.logger.Error("encode update", logging.Error(err),
			logging.String(logging.FieldJobID, update.JobID))
		return 0
	}

	d.mu.Lock()
	members := d.registry.Members(update.JobID)
	delivered := 0
	for _, sub := range members {
		if sub.Send(payload) {
			delivered++
		}
	}
	d.mu.Unlock()

	if dropped := len(members) - delivered; dropped > 0 {
		d.logger.Warn("updates dropped",
			logging.String(logging.FieldJobID, update.JobID),
			logging.Int("dropped", dropped))
	}
	return delivered
}

func (d *Dispatcher) runHooks(ctx context.Context, job *jobs.Job) {
	d.hookMu.Lock()
	hooks := make([]TerminalHook, len(d.hooks))
	copy(hooks, d.hooks)
	d.hookMu.Unlock()

	for _, hook := range hooks {
		hook(ctx, job)
	}
}

func encodeEvent(update api.JobUpdate) ([]byte, error) {
	return json.Marshal(api.Event{Type: api.EventTranscription, Data: update})
}
