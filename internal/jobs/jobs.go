package jobs

import (
	"time"

	"github.com/google/uuid"
)

// A Job is one unit of asynchronous mail work carried over the redis queue.
type Job struct {
	ID          string    `json:"id"`
	Type        MailType  `json:"type"`
	Payload     []byte    `json:"payload"` // raw json
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}

// creation of a new job with defaults.

func NewJob(t MailType, payloadJSON []byte) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidMailType
	}

	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		Attempts:    0,
		MaxAttempts: 5,
		EnqueuedAt:  time.Now().UTC(),
	}, nil
}
