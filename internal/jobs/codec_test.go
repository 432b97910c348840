package jobs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pricearb/backend/internal/jobs"
)

func TestWelcomeJobRoundTrip(t *testing.T) {
	payload := jobs.WelcomeEmailPayload{
		UserID:      "u-1",
		Email:       "a@x.com",
		Username:    "alice",
		RequestedAt: time.Now().UTC().Truncate(time.Second),
		RequestID:   "req-1",
	}

	raw, err := jobs.EncodePayload(jobs.MailWelcome, payload)
	if err != nil {
		t.Fatalf("EncodePayload returned error: %v", err)
	}

	j, err := jobs.NewJob(jobs.MailWelcome, raw)
	if err != nil {
		t.Fatalf("NewJob returned error: %v", err)
	}
	if j.ID == "" || j.MaxAttempts <= 0 {
		t.Fatalf("NewJob defaults missing: %+v", j)
	}

	wire, err := jobs.Encode(j)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	got, err := jobs.Decode(wire)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.ID != j.ID || got.Type != jobs.MailWelcome {
		t.Errorf("decoded job = %+v, want id %q type welcome", got, j.ID)
	}

	decoded, err := jobs.DecodePayload(got)
	if err != nil {
		t.Fatalf("DecodePayload returned error: %v", err)
	}

	p, ok := decoded.(jobs.WelcomeEmailPayload)
	if !ok {
		t.Fatalf("decoded payload has type %T, want WelcomeEmailPayload", decoded)
	}
	if p.UserID != "u-1" || p.Email != "a@x.com" || p.Username != "alice" {
		t.Errorf("payload = %+v, want original values", p)
	}
}

func TestEncodePayloadRejectsMismatchedType(t *testing.T) {
	_, err := jobs.EncodePayload(jobs.MailWelcome, jobs.PasswordResetPayload{UserID: "u", Email: "e"})

	if !errors.Is(err, jobs.ErrPayloadTypeMismatch) {
		t.Fatalf("EncodePayload = %v, want ErrPayloadTypeMismatch", err)
	}
}

func TestEncodePayloadRejectsUnknownType(t *testing.T) {
	_, err := jobs.EncodePayload(jobs.MailType("carrier_pigeon"), jobs.WelcomeEmailPayload{})

	if !errors.Is(err, jobs.ErrInvalidMailType) {
		t.Fatalf("EncodePayload = %v, want ErrInvalidMailType", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := jobs.Decode([]byte("{not json")); !errors.Is(err, jobs.ErrInvalidPayload) {
		t.Errorf("Decode(garbage) = %v, want ErrInvalidPayload", err)
	}

	if _, err := jobs.Decode([]byte(`{"id":"x","type":"carrier_pigeon"}`)); !errors.Is(err, jobs.ErrInvalidMailType) {
		t.Errorf("Decode(unknown type) = %v, want ErrInvalidMailType", err)
	}
}

func TestValidatePayloadRequiresIdentity(t *testing.T) {
	err := jobs.ValidatePayload(jobs.MailWelcome, jobs.WelcomeEmailPayload{UserID: " ", Email: "a@x.com"})
	if !errors.Is(err, jobs.ErrInvalidPayload) {
		t.Errorf("blank user id = %v, want ErrInvalidPayload", err)
	}

	err = jobs.ValidatePayload(jobs.MailWelcome, jobs.WelcomeEmailPayload{UserID: "u", Email: ""})
	if !errors.Is(err, jobs.ErrInvalidPayload) {
		t.Errorf("blank email = %v, want ErrInvalidPayload", err)
	}

	err = jobs.ValidatePayload(jobs.MailWelcome, jobs.WelcomeEmailPayload{UserID: "u", Email: "a@x.com"})
	if err != nil {
		t.Errorf("valid payload = %v, want nil", err)
	}
}
