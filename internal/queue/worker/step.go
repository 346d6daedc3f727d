package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlopez-dev/authhub/internal/jobs"
	"github.com/mlopez-dev/authhub/internal/notifications"
)

func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {

	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
	}

	err = w.execute(ctx, j)

	if w.prom != nil {
		w.prom.JobsInFlight.Dec()
	}

	if err != nil {
		w.handleFailure(ctx, j, err, time.Since(start))
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	if w.prom != nil {
		w.prom.ObserveJob(string(j.Type), "done", time.Since(start))
	}

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.SendPasswordResetPayload:
		return w.mailer.SendPasswordReset(ctx, notifications.PasswordResetInput{
			Email:    p.Email,
			Name:     p.Name,
			ResetURL: p.ResetURL,
		})

	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type)
	}
}

// handleFailure retries with exponential backoff until max attempts, then
// marks the job failed for good.
func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, execErr error, took time.Duration) {
	// attempts counts completed tries; this one just failed
	attempt := j.Attempts + 1

	if attempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}

		if w.prom != nil {
			w.prom.ObserveJob(string(j.Type), "failed", took)
		}

		w.log.Warn("job dead-lettered", "job_id", j.ID, "type", j.Type, "attempts", attempt, "err", execErr)
		return
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
		return
	}

	if w.prom != nil {
		w.prom.ObserveJob(string(j.Type), "retry", took)
	}

	w.log.Info("job rescheduled", "job_id", j.ID, "type", j.Type, "attempt", attempt, "run_at", runAt)
}
