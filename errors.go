package mailsender

import "github.com/shineum/mailsender-lite/internal/email"

// Errors returned by the send functions. Use errors.Is to test for them.
var (
	ErrConfigNotLoaded    = email.ErrConfigNotLoaded
	ErrMissingSender      = email.ErrMissingSender
	ErrMissingCredentials = email.ErrMissingCredentials
	ErrInvalidAddress     = email.ErrInvalidAddress
	ErrAttachment         = email.ErrAttachment
	ErrAttachmentTooLarge = email.ErrAttachmentTooLarge
	ErrTransport          = email.ErrTransport
)
