package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogMailer is the stub delivery channel: the welcome mail is rendered to the
// log and never actually sent. A real provider slots in behind the Mailer
// interface without touching the worker.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendWelcome(ctx context.Context, in WelcomeEmailInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	m.log.InfoContext(ctx, "mail.welcome",
		"user_id", in.UserID,
		"email", in.Email,
		"username", in.Username,
	)
	return nil
}
