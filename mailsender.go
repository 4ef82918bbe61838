// Package mailsender composes and sends plain text and HTML email, with
// optional file attachments, using credentials and sender addresses taken
// from a properties or YAML configuration file.
//
// The package-level functions use a process-wide configuration that is loaded
// lazily from "email.properties" on first use. A Mailer can be built with its
// own configuration instead.
package mailsender

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shineum/mailsender-lite/internal/config"
	"github.com/shineum/mailsender-lite/internal/email"
	"github.com/shineum/mailsender-lite/internal/metrics"
	"github.com/shineum/mailsender-lite/internal/transport"
	"github.com/shineum/mailsender-lite/internal/transport/ses"
	"github.com/shineum/mailsender-lite/internal/transport/smtp"
)

// Config is an immutable set of configuration properties.
type Config = config.Properties

// Resolver lazily loads and caches a Config from a file.
type Resolver = config.Resolver

// DialFunc opens an SMTP connection. See WithSMTPDialer.
type DialFunc = smtp.DialFunc

// SESClient is the subset of the AWS SES v2 client used by the ses transport.
type SESClient = ses.SendEmailAPI

// NewConfig builds a Config from a copy of m.
func NewConfig(m map[string]string) Config {
	return config.NewProperties(m)
}

// LoadConfig reads a configuration file and applies environment overrides.
func LoadConfig(path string) (Config, error) {
	return config.LoadFile(path)
}

// NewResolver returns a Resolver for path, or "email.properties" when empty.
func NewResolver(path string) *Resolver {
	return config.NewResolver(path)
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the logger. By default the process default logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) { m.logger = l }
}

// WithOutput sets where the stdout transport prints.
func WithOutput(w io.Writer) Option {
	return func(m *Mailer) { m.transport.Stdout = w }
}

// WithSMTPDialer replaces the SMTP dialer of the smtp and smtps transports.
func WithSMTPDialer(fn DialFunc) Option {
	return func(m *Mailer) { m.transport.SMTPDial = fn }
}

// WithSESClient replaces the AWS client of the ses transport.
func WithSESClient(c SESClient) Option {
	return func(m *Mailer) { m.transport.SESClient = c }
}

// Mailer sends messages using the configuration of its Resolver. Every send
// resolves the configuration, composes a new message and opens a new transport.
type Mailer struct {
	resolver  *config.Resolver
	logger    *slog.Logger
	transport transport.Options
}

// New returns a Mailer bound to a fixed configuration.
func New(cfg Config, opts ...Option) *Mailer {
	r := config.NewResolver("")
	r.Set(cfg)
	return NewWithResolver(r, opts...)
}

// NewWithResolver returns a Mailer that reads its configuration from r.
func NewWithResolver(r *Resolver, opts ...Option) *Mailer {
	m := &Mailer{resolver: r}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration the next send will use.
func (m *Mailer) Config() Config {
	return m.resolver.Get()
}

// SendTextMail sends a plain text message to a comma-separated To list.
func (m *Mailer) SendTextMail(ctx context.Context, to, personal, subject, content string) error {
	return m.SendMail(ctx, to, "", personal, subject, content, false, nil)
}

// SendTextMailCc sends a plain text message to To and Cc lists.
func (m *Mailer) SendTextMailCc(ctx context.Context, to, cc, personal, subject, content string) error {
	return m.SendMail(ctx, to, cc, personal, subject, content, false, nil)
}

// SendHTMLMail sends an HTML message to To and Cc lists.
func (m *Mailer) SendHTMLMail(ctx context.Context, to, cc, personal, subject, content string) error {
	return m.SendMail(ctx, to, cc, personal, subject, content, true, nil)
}

// SendMail composes and sends one message.
//
// to and cc are comma-separated address lists; an empty list is omitted.
// An empty personal uses the configured email.from.personal. Attachments are
// file paths, sent under their base names. Failures are logged and returned;
// they wrap one of the package's Err values.
func (m *Mailer) SendMail(ctx context.Context, to, cc, personal, subject, content string, isHTML bool, attachments []string) error {
	props := m.resolver.Get()
	protocol := transport.Protocol(props)
	logger := m.log().With(
		"transport", protocol,
		"to", to,
		"subject", subject,
	)

	msg, err := email.Compose(props, email.Params{
		To:          to,
		Cc:          cc,
		Personal:    personal,
		Subject:     subject,
		Content:     content,
		HTML:        isHTML,
		Attachments: attachments,
	})
	if err != nil {
		stage := metrics.StageCompose
		if errors.Is(err, ErrConfigNotLoaded) || errors.Is(err, ErrMissingSender) {
			stage = metrics.StageConfig
		}
		return fail(logger, protocol, stage, err)
	}

	tr, err := transport.FromConfig(ctx, props, m.transportOptions())
	if err != nil {
		return fail(logger, protocol, metrics.StageConfig, err)
	}

	if err := tr.Send(ctx, msg); err != nil {
		stage := metrics.StageTransport
		if errors.Is(err, ErrAttachment) {
			stage = metrics.StageCompose
		}
		return fail(logger, tr.Name(), stage, err)
	}

	metrics.RecordSent(tr.Name())
	logger.Info("mail sent",
		"recipients", len(msg.Recipients()),
		"attachments", len(msg.Attachments),
		"html", isHTML,
	)
	return nil
}

func (m *Mailer) transportOptions() transport.Options {
	opts := m.transport
	opts.Logger = m.log()
	return opts
}

func (m *Mailer) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

func fail(logger *slog.Logger, transportName, stage string, err error) error {
	metrics.RecordFailed(transportName, stage)
	logger.Error("failed to send mail",
		"stage", stage,
		"error", err,
	)
	return err
}
