package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t MailType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidMailType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case MailWelcome:
		var p WelcomeEmailPayload
		switch v := payload.(type) {
		case WelcomeEmailPayload:
			p = v
		case *WelcomeEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" {
			return ErrInvalidPayload
		}
		return nil

	case MailPasswordReset:
		var p PasswordResetPayload
		switch v := payload.(type) {
		case PasswordResetPayload:
			p = v
		case *PasswordResetPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" {
			return ErrInvalidPayload
		}
		return nil

	case MailEmailConfirmation:
		var p EmailConfirmationPayload
		switch v := payload.(type) {
		case EmailConfirmationPayload:
			p = v
		case *EmailConfirmationPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" {
			return ErrInvalidPayload
		}
		return nil

	default:
		return ErrInvalidMailType
	}
}
