package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t MailType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidMailType
	}

	switch t {
	case MailWelcome:
		switch payload.(type) {
		case WelcomeEmailPayload, *WelcomeEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case MailPasswordReset:
		switch payload.(type) {
		case PasswordResetPayload, *PasswordResetPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case MailEmailConfirmation:
		switch payload.(type) {
		case EmailConfirmationPayload, *EmailConfirmationPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidMailType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidPayload
	}

	switch j.Type {
	case MailWelcome:
		var p WelcomeEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	case MailPasswordReset:
		var p PasswordResetPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	case MailEmailConfirmation:
		var p EmailConfirmationPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidMailType
	}
}

// Encode/Decode wrap the whole job for the wire.

func Encode(j Job) ([]byte, error) {
	return json.Marshal(j)
}

func Decode(raw []byte) (Job, error) {
	var j Job

	if err := json.Unmarshal(raw, &j); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if !j.Type.IsValid() {
		return Job{}, ErrInvalidMailType
	}

	return j, nil
}
