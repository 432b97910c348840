package jobs

type MailType string

const (
	MailWelcome MailType = "welcome_email"

	// stubs for flows the product doesn't implement yet
	MailPasswordReset     MailType = "password_reset_email"
	MailEmailConfirmation MailType = "email_confirmation"
)

// check to see if the mail type is a known constant

func (t MailType) IsValid() bool {
	switch t {
	case MailWelcome, MailPasswordReset, MailEmailConfirmation:
		return true
	default:
		return false
	}
}
