package mailsender

import (
	"context"

	"github.com/shineum/mailsender-lite/internal/config"
)

var (
	defaultResolver = config.NewResolver(config.DefaultPath)
	defaultMailer   = NewWithResolver(defaultResolver)
)

// SetConfigPath points the default configuration at path and loads it
// immediately. A failed load is logged and leaves an empty configuration.
func SetConfigPath(path string) {
	defaultResolver.SetPath(path)
}

// SetConfig replaces the default configuration.
func SetConfig(cfg Config) {
	defaultResolver.Set(cfg)
}

// GetConfig returns the default configuration, loading it on first use.
func GetConfig() Config {
	return defaultResolver.Get()
}

// ConfigError returns the error of the last failed default configuration load.
func ConfigError() error {
	return defaultResolver.Err()
}

// SendTextMail sends a plain text message with the default configuration.
func SendTextMail(ctx context.Context, to, personal, subject, content string) error {
	return defaultMailer.SendTextMail(ctx, to, personal, subject, content)
}

// SendTextMailCc sends a plain text message with Cc recipients using the
// default configuration.
func SendTextMailCc(ctx context.Context, to, cc, personal, subject, content string) error {
	return defaultMailer.SendTextMailCc(ctx, to, cc, personal, subject, content)
}

// SendHTMLMail sends an HTML message with the default configuration.
func SendHTMLMail(ctx context.Context, to, cc, personal, subject, content string) error {
	return defaultMailer.SendHTMLMail(ctx, to, cc, personal, subject, content)
}

// SendMail composes and sends one message with the default configuration.
func SendMail(ctx context.Context, to, cc, personal, subject, content string, isHTML bool, attachments []string) error {
	return defaultMailer.SendMail(ctx, to, cc, personal, subject, content, isHTML, attachments)
}
