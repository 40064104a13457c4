package mail

import "errors"

var (
	ErrUnknownTemplate   = errors.New("unknown mail template")
	ErrFailedToSendEmail = errors.New("failed to send email")
	ErrInvalidConfig     = errors.New("invalid mail configuration")
)
