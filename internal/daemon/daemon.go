package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"quickscribe/internal/api"
	"quickscribe/internal/config"
	"quickscribe/internal/dispatch"
	"quickscribe/internal/gateway"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
	"quickscribe/internal/notifications"
	"quickscribe/internal/rooms"
	"quickscribe/internal/server"
	"quickscribe/internal/storage"
	"quickscribe/internal/worker"
)

// Daemon owns the relay's long-running components: the job store, the
// HTTP/websocket server, and the retention sweeper. A file lock keeps
// a second instance from sharing the same data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    *jobs.Store
	registry *rooms.Registry
	server   *server.Server
	sweeper  *jobs.RetentionSweeper
}

func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(lockPath(cfg))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running (lock %s)", lock.Path())
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		releaseLock(lock)
		return nil, err
	}

	objects, err := storage.New(cfg)
	if err != nil {
		store.Close()
		releaseLock(lock)
		return nil, err
	}

	registry := rooms.NewRegistry(logger)
	dispatcher := dispatch.New(store, registry, logger)
	workerClient := worker.NewClient(cfg, logger)
	gw := gateway.New(cfg, store, objects, workerClient, dispatcher, logger)

	notifier := notifications.NewService(cfg, logger)
	dispatcher.OnTerminal(func(ctx context.Context, job *jobs.Job) {
		notifyTerminal(ctx, notifier, job, logger)
	})

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lock:     lock,
		store:    store,
		registry: registry,
		server:   server.New(cfg, store, gw, dispatcher, registry, logger),
		sweeper:  jobs.NewRetentionSweeper(store, cfg.Retention(), cfg.SweepInterval(), logger),
	}
	return d, nil
}

// Run serves until ctx is canceled, then shuts everything down.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.cleanup()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go d.sweeper.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- d.server.Start() }()

	d.logger.Info("daemon started",
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.Int("pid", os.Getpid()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("shutdown", logging.Error(err))
	}
	return nil
}

// Status summarizes the running daemon for the CLI.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	counts := map[string]int{}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	for status, count := range stats {
		counts[string(status)] = count
	}
	return api.DaemonStatus{
		Running:      true,
		PID:          os.Getpid(),
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lock.Path(),
		Subscribers:  d.registry.Subscribers(),
		Counts:       counts,
	}, nil
}

func (d *Daemon) cleanup() {
	if err := d.store.Close(); err != nil {
		d.logger.Error("close store", logging.Error(err))
	}
	releaseLock(d.lock)
}

func lockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "quickscribed.lock")
}

func releaseLock(lock *flock.Flock) {
	_ = lock.Unlock()
}

func notifyTerminal(ctx context.Context, notifier notifications.Service, job *jobs.Job, logger *slog.Logger) {
	var err error
	switch job.Status {
	case jobs.StatusCompleted:
		err = notifier.NotifyJobCompleted(ctx, job)
	case jobs.StatusFailed:
		err = notifier.NotifyJobFailed(ctx, job)
	}
	if err != nil {
		logging.NewComponentLogger(logger, "daemon").Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldJobID, job.JobID))
	}
}
