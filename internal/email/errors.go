package email

import "errors"

var (
	// ErrConfigNotLoaded is returned when the configuration is empty,
	// usually because the configuration file could not be read.
	ErrConfigNotLoaded = errors.New("mail configuration not loaded")

	// ErrMissingSender is returned when email.from.address is not configured.
	ErrMissingSender = errors.New("sender address not configured")

	// ErrMissingCredentials is returned when SMTP auth is enabled but
	// mail.user or mail.password is not configured.
	ErrMissingCredentials = errors.New("smtp credentials not configured")

	// ErrInvalidAddress is returned when a recipient, sender or reply-to
	// address cannot be parsed.
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrAttachment is returned when an attachment file cannot be read.
	ErrAttachment = errors.New("attachment not readable")

	// ErrAttachmentTooLarge is returned when attachments exceed the configured limit.
	ErrAttachmentTooLarge = errors.New("attachments exceed size limit")

	// ErrTransport is returned when delivery fails or no transport is available.
	ErrTransport = errors.New("mail transport failed")
)
