// Package smtp delivers messages through an SMTP server using gomail.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/shineum/mailsender-lite/internal/email"
)

// Config holds the connection settings for an SMTP server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Auth requires Username and Password and enables SMTP AUTH.
	Auth bool
	// SSL connects with implicit TLS. Otherwise STARTTLS is used when offered.
	SSL bool
	// InsecureSkipVerify trusts any server certificate.
	InsecureSkipVerify bool
	// LocalName is the name sent in EHLO. Defaults to "localhost".
	LocalName string
}

// DialFunc opens an authenticated connection ready to send.
type DialFunc func() (gomail.SendCloser, error)

// Option configures a Transport.
type Option func(*Transport)

// WithDialFunc replaces the gomail dialer.
func WithDialFunc(fn DialFunc) Option {
	return func(t *Transport) { t.dial = fn }
}

// WithLogger sets the logger used for delivery events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// Transport sends one message per connection.
type Transport struct {
	cfg    Config
	dial   DialFunc
	logger *slog.Logger
}

// New validates cfg and builds a Transport. It returns email.ErrMissingCredentials
// when Auth is set without both a username and a password.
func New(cfg Config, opts ...Option) (*Transport, error) {
	if cfg.Auth && (cfg.Username == "" || cfg.Password == "") {
		return nil, email.ErrMissingCredentials
	}

	d := &gomail.Dialer{
		Host:      cfg.Host,
		Port:      cfg.Port,
		SSL:       cfg.SSL,
		LocalName: cfg.LocalName,
	}
	if cfg.Auth {
		d.Username = cfg.Username
		d.Password = cfg.Password
	}
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}

	t := &Transport{
		cfg:    cfg,
		dial:   d.Dial,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send dials the server, transmits msg to every To and Cc recipient and closes
// the connection. There is no retry.
func (t *Transport) Send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", email.ErrTransport, err)
	}

	sc, err := t.dial()
	if err != nil {
		return fmt.Errorf("%w: dial %s:%d: %v", email.ErrTransport, t.cfg.Host, t.cfg.Port, err)
	}
	defer closeQuietly(sc, t.logger)

	if err := gomail.Send(sc, msg.Message()); err != nil {
		return fmt.Errorf("%w: %v", email.ErrTransport, err)
	}

	t.logger.Debug("message delivered",
		"transport", t.Name(),
		"host", t.cfg.Host,
		"port", t.cfg.Port,
		"recipients", len(msg.To)+len(msg.Cc),
	)
	return nil
}

// Name returns "smtps" for implicit TLS connections and "smtp" otherwise.
func (t *Transport) Name() string {
	if t.cfg.SSL {
		return "smtps"
	}
	return "smtp"
}

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Debug("failed to close smtp connection", "error", err)
	}
}
