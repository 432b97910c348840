package notifications

import "context"

type WelcomeEmailInput struct {
	UserID   string
	Email    string
	Username string
}

type Mailer interface {
	SendWelcome(ctx context.Context, input WelcomeEmailInput) error
}
