package queue

import (
	"context"
	"time"

	"github.com/pricearb/backend/internal/jobs"
)

// MailQueueKey is the redis list shared by the API (producer) and the
// worker (consumer).
const MailQueueKey = "pricearb:mail"

type enqueuer interface {
	Enqueue(ctx context.Context, queue string, raw []byte) error
}

// Producer wraps the redis client with the mail job encoding.
type Producer struct {
	client enqueuer
}

func NewProducer(client enqueuer) *Producer {
	return &Producer{client: client}
}

func (p *Producer) EnqueueWelcome(ctx context.Context, userID, email, username, requestID string) error {
	payload := jobs.WelcomeEmailPayload{
		UserID:      userID,
		Email:       email,
		Username:    username,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	}

	raw, err := jobs.EncodePayload(jobs.MailWelcome, payload)

	if err != nil {
		return err
	}

	j, err := jobs.NewJob(jobs.MailWelcome, raw)

	if err != nil {
		return err
	}

	wire, err := jobs.Encode(j)

	if err != nil {
		return err
	}

	return p.client.Enqueue(ctx, MailQueueKey, wire)
}
