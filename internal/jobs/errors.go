package jobs

import "errors"

var (
	ErrInvalidMailType     = errors.New("invalid mail type")
	ErrInvalidPayload      = errors.New("invalid mail payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for mail type")
)
