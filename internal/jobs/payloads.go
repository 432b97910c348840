package jobs

import "time"

// WelcomeEmailPayload is queued after a successful registration. Keep it
// ID-based and small; the worker owns rendering.
type WelcomeEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"` // correlation
}

// PasswordResetPayload exists for the stubbed reset flow.
type PasswordResetPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// EmailConfirmationPayload exists for the stubbed confirmation flow.
type EmailConfirmationPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
