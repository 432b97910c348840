package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pricearb/backend/internal/jobs"
	"github.com/pricearb/backend/internal/notifications"
	"github.com/pricearb/backend/internal/queue/redisclient"
	"github.com/pricearb/backend/internal/queue/worker"
)

type fakeQueue struct {
	dequeue func(ctx context.Context, key string, timeout time.Duration) ([]byte, error)

	mu       sync.Mutex
	enqueued [][]byte
}

func (f *fakeQueue) Enqueue(_ context.Context, _ string, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enqueued = append(f.enqueued, raw)
	return nil
}

func (f *fakeQueue) Dequeue(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	if f.dequeue != nil {
		return f.dequeue(ctx, key, timeout)
	}
	return nil, redisclient.ErrEmpty
}

func (f *fakeQueue) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]byte, len(f.enqueued))
	copy(out, f.enqueued)
	return out
}

// waitEnqueued polls until the queue holds n entries or the deadline passes.
func (f *fakeQueue) waitEnqueued(t *testing.T, n int) [][]byte {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if got := f.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("queue never reached %d entries (have %d)", n, len(f.snapshot()))
	return nil
}

type fakeMailer struct {
	err  error
	sent []notifications.WelcomeEmailInput
}

func (f *fakeMailer) SendWelcome(_ context.Context, in notifications.WelcomeEmailInput) error {
	f.sent = append(f.sent, in)
	return f.err
}

func welcomeWire(t *testing.T, attempts, maxAttempts int) []byte {
	t.Helper()

	raw, err := jobs.EncodePayload(jobs.MailWelcome, jobs.WelcomeEmailPayload{
		UserID: "u-1", Email: "a@x.com", Username: "alice",
	})
	if err != nil {
		t.Fatalf("EncodePayload returned error: %v", err)
	}

	j, err := jobs.NewJob(jobs.MailWelcome, raw)
	if err != nil {
		t.Fatalf("NewJob returned error: %v", err)
	}
	j.Attempts = attempts
	j.MaxAttempts = maxAttempts

	wire, err := jobs.Encode(j)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	return wire
}

func TestProcessOneDeliversWelcomeMail(t *testing.T) {
	wire := welcomeWire(t, 0, 5)

	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return wire, nil
		},
	}
	mailer := &fakeMailer{}

	w := worker.New(worker.Config{WorkerID: "test"}, q, mailer, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}
	if !processed {
		t.Fatal("ProcessOne = false, want true")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("mailer received %d sends, want 1", len(mailer.sent))
	}
	if got := mailer.sent[0]; got.UserID != "u-1" || got.Email != "a@x.com" || got.Username != "alice" {
		t.Errorf("sent input = %+v, want enqueued identity", got)
	}

	if len(q.enqueued) != 0 {
		t.Errorf("successful job was requeued %d times", len(q.enqueued))
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	q := &fakeQueue{}
	w := worker.New(worker.Config{WorkerID: "test"}, q, &fakeMailer{}, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}
	if processed {
		t.Fatal("ProcessOne = true on empty queue, want false")
	}
}

func TestProcessOnePropagatesQueueErrors(t *testing.T) {
	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}
	w := worker.New(worker.Config{WorkerID: "test"}, q, &fakeMailer{}, nil, nil)

	if _, err := w.ProcessOne(context.Background()); err == nil {
		t.Fatal("expected queue error to propagate")
	}
}

func TestProcessOneDropsUndecodableJob(t *testing.T) {
	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return []byte("{not json"), nil
		},
	}
	mailer := &fakeMailer{}
	w := worker.New(worker.Config{WorkerID: "test"}, q, mailer, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}
	if !processed {
		t.Fatal("ProcessOne = false, want true")
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mailer was called for a poison message")
	}
	if len(q.enqueued) != 0 {
		t.Errorf("poison message was requeued")
	}
}

func TestProcessOneRequeuesFailedJob(t *testing.T) {
	wire := welcomeWire(t, 0, 5)

	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return wire, nil
		},
	}
	mailer := &fakeMailer{err: errors.New("provider down")}

	w := worker.New(worker.Config{
		WorkerID: "test",
		Backoff:  func(int) time.Duration { return 0 },
	}, q, mailer, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}
	if !processed {
		t.Fatal("ProcessOne = false, want true")
	}

	enqueued := q.waitEnqueued(t, 1)

	requeued, err := jobs.Decode(enqueued[0])
	if err != nil {
		t.Fatalf("requeued wire failed to decode: %v", err)
	}
	if requeued.Attempts != 1 {
		t.Errorf("requeued Attempts = %d, want 1", requeued.Attempts)
	}
}

func TestRetryBackoffDoesNotBlockTheLoop(t *testing.T) {
	wire := welcomeWire(t, 0, 5)

	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return wire, nil
		},
	}
	mailer := &fakeMailer{err: errors.New("provider down")}

	w := worker.New(worker.Config{
		WorkerID: "test",
		Backoff:  func(int) time.Duration { return time.Hour },
	}, q, mailer, nil, nil)

	start := time.Now()

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	// the hour-long cooldown must not stall the consume loop
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("ProcessOne took %v with a pending backoff, want immediate return", elapsed)
	}

	if got := q.snapshot(); len(got) != 0 {
		t.Errorf("job requeued before its backoff elapsed")
	}
}

func TestProcessOneDropsExhaustedJob(t *testing.T) {
	wire := welcomeWire(t, 4, 5)

	q := &fakeQueue{
		dequeue: func(context.Context, string, time.Duration) ([]byte, error) {
			return wire, nil
		},
	}
	mailer := &fakeMailer{err: errors.New("provider down")}
	w := worker.New(worker.Config{WorkerID: "test"}, q, mailer, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}
	if !processed {
		t.Fatal("ProcessOne = false, want true")
	}
	if len(q.enqueued) != 0 {
		t.Errorf("exhausted job was requeued %d times", len(q.enqueued))
	}
}
