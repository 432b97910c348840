package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pricearb/backend/internal/jobs"
	"github.com/pricearb/backend/internal/notifications"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/queue"
	"github.com/pricearb/backend/internal/queue/redisclient"
)

type MailQueue interface {
	Enqueue(ctx context.Context, queue string, raw []byte) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

type Config struct {
	PollTimeout time.Duration
	WorkerID    string

	// Backoff maps a retry attempt (0-based) to its requeue delay.
	Backoff func(attempt int) time.Duration
}

type Worker struct {
	cfg    Config
	queue  MailQueue
	mailer notifications.Mailer
	prom   *observability.Prom
	log    *slog.Logger

	// pending requeues; Run waits these out so a shutdown can't drop a job
	requeues sync.WaitGroup
}

func New(cfg Config, q MailQueue, mailer notifications.Mailer, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:    cfg,
		queue:  q,
		mailer: mailer,
		prom:   prom,
		log:    log,
	}
}

// Run consumes mail jobs until the context is cancelled. Failed sends go back
// on the queue after a backoff delay until MaxAttempts is exhausted.
func (w *Worker) Run(ctx context.Context) error {
	defer w.requeues.Wait()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal", "worker_id", w.cfg.WorkerID)
			return nil
		default:
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if w.prom != nil {
				w.prom.QueueDepthErr.Inc()
			}

			w.log.Error("queue poll failed", "err", err)

			// brief pause so a dead redis doesn't spin the loop
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		_ = processed
	}
}

// ProcessOne pulls and executes at most one job. Returns false when the queue
// was empty for the whole poll window.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	raw, err := w.queue.Dequeue(ctx, queue.MailQueueKey, w.cfg.PollTimeout)

	if err != nil {
		if errors.Is(err, redisclient.ErrEmpty) {
			return false, nil
		}
		return false, err
	}

	j, err := jobs.Decode(raw)

	if err != nil {
		// poison message: nothing to retry, drop it loudly
		w.log.Error("undecodable mail job dropped", "err", err)
		w.observe(string(jobs.MailWelcome), "failed", 0)
		return true, nil
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.MailInFlight.Inc()
		defer w.prom.MailInFlight.Dec()
	}

	err = w.execute(ctx, j)
	elapsed := time.Since(start)

	if err == nil {
		w.observe(string(j.Type), "done", elapsed.Seconds())
		return true, nil
	}

	w.handleFailure(ctx, j, err, elapsed)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(j.Type, decoded); err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.WelcomeEmailPayload:
		return w.mailer.SendWelcome(ctx, notifications.WelcomeEmailInput{
			UserID:   p.UserID,
			Email:    p.Email,
			Username: p.Username,
		})

	default:
		// password reset / confirmation stay stubbed; consuming them keeps
		// the queue clean if something enqueues one early
		w.log.Warn("mail type not implemented, dropping", "type", j.Type)
		return nil
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, sendErr error, elapsed time.Duration) {
	j.Attempts++

	if j.Attempts >= j.MaxAttempts {
		w.log.Error("mail job exhausted retries",
			"job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", sendErr)
		w.observe(string(j.Type), "failed", elapsed.Seconds())
		return
	}

	w.log.Warn("mail job failed, requeueing",
		"job_id", j.ID, "type", j.Type, "attempt", j.Attempts, "err", sendErr)
	w.observe(string(j.Type), "retry", elapsed.Seconds())

	delay := w.cfg.Backoff(j.Attempts - 1)

	// The backoff waits on its own goroutine so the consume loop keeps
	// draining other jobs while this one cools off.
	w.requeues.Add(1)

	go func() {
		defer w.requeues.Done()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// push back without the wait so the job isn't lost on shutdown
		}

		wire, err := jobs.Encode(j)

		if err != nil {
			w.log.Error("could not re-encode mail job", "job_id", j.ID, "err", err)
			return
		}

		requeueCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := w.queue.Enqueue(requeueCtx, queue.MailQueueKey, wire); err != nil {
			w.log.Error("requeue failed, mail job lost", "job_id", j.ID, "err", err)
		}
	}()
}

func (w *Worker) observe(mailType, result string, seconds float64) {
	if w.prom == nil {
		return
	}

	w.prom.MailResults.WithLabelValues(mailType, result).Inc()
	w.prom.MailDuration.WithLabelValues(mailType, result).Observe(seconds)
}
