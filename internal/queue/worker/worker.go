package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mlopez-dev/authhub/internal/jobs"
	"github.com/mlopez-dev/authhub/internal/notifications"
	"github.com/mlopez-dev/authhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (jobs.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg    Config
	repo   JobsRepository
	mailer notifications.Mailer
	prom   *observability.Prom
	log    *slog.Logger

	// wake receives nudges from the API's enqueue path; nil means poll-only
	wake <-chan struct{}

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, mailer notifications.Mailer, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:    cfg,
		repo:   repo,
		mailer: mailer,
		prom:   prom,
		log:    log,
	}
}

// SetWakeChannel attaches a nudge channel (redis pub/sub). Call before Run.
func (w *Worker) SetWakeChannel(ch <-chan struct{}) {
	w.wake = ch
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-w.wake:
			w.drain(ctx)

		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes claimable jobs until the queue is empty or ctx is done.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("job processing error", "err", err)
		}

		if !processed {
			return
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
