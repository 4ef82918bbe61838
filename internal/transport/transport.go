// Package transport defines the delivery backends and selects one from
// configuration.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shineum/mailsender-lite/internal/config"
	"github.com/shineum/mailsender-lite/internal/email"
	"github.com/shineum/mailsender-lite/internal/transport/ses"
	"github.com/shineum/mailsender-lite/internal/transport/smtp"
	"github.com/shineum/mailsender-lite/internal/transport/stdout"
)

// Supported values of mail.transport.protocol.
const (
	ProtocolSMTP   = "smtp"
	ProtocolSMTPS  = "smtps"
	ProtocolSES    = "ses"
	ProtocolStdout = "stdout"
)

// Transport delivers a composed message.
type Transport interface {
	// Send transmits msg. Failures wrap email.ErrTransport.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the transport name used in logs and metrics.
	Name() string
}

// Options carries dependencies that do not come from configuration.
type Options struct {
	// Stdout is where the stdout transport prints. Defaults to os.Stdout.
	Stdout io.Writer
	Logger *slog.Logger
	// SMTPDial replaces the gomail dialer of the smtp transports.
	SMTPDial smtp.DialFunc
	// SESClient replaces the AWS client of the ses transport.
	SESClient ses.SendEmailAPI
}

// Protocol returns the configured protocol name, defaulting to smtp.
func Protocol(props config.Properties) string {
	return strings.ToLower(props.GetDefault(config.KeyProtocol, ProtocolSMTP))
}

// FromConfig builds the transport selected by mail.transport.protocol.
func FromConfig(ctx context.Context, props config.Properties, opts Options) (Transport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch protocol := Protocol(props); protocol {
	case ProtocolSMTP, ProtocolSMTPS:
		var smtpOpts []smtp.Option
		smtpOpts = append(smtpOpts, smtp.WithLogger(logger))
		if opts.SMTPDial != nil {
			smtpOpts = append(smtpOpts, smtp.WithDialFunc(opts.SMTPDial))
		}
		t, err := smtp.New(SMTPConfig(props), smtpOpts...)
		if err != nil {
			return nil, err
		}
		return t, nil

	case ProtocolSES:
		if opts.SESClient != nil {
			return ses.NewWithClient(opts.SESClient, logger), nil
		}
		t, err := ses.New(ctx, ses.Config{
			Region:          props.GetDefault(config.KeySESRegion, ""),
			AccessKeyID:     props.GetDefault(config.KeySESAccessKeyID, ""),
			SecretAccessKey: props.GetDefault(config.KeySESSecretKey, ""),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", email.ErrTransport, err)
		}
		return t, nil

	case ProtocolStdout:
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		return stdout.NewWithWriter(w), nil

	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", email.ErrTransport, protocol)
	}
}

// SMTPConfig maps mail.smtp.* properties to an SMTP connection config.
func SMTPConfig(props config.Properties) smtp.Config {
	ssl := Protocol(props) == ProtocolSMTPS || props.Bool(config.KeySMTPSSLEnable, false)
	defaultPort := 25
	if ssl {
		defaultPort = 465
	}

	return smtp.Config{
		Host:               props.GetDefault(config.KeySMTPHost, "localhost"),
		Port:               props.Int(config.KeySMTPPort, defaultPort),
		Username:           props.Get(config.KeyUser),
		Password:           props.Get(config.KeyPassword),
		Auth:               props.Bool(config.KeySMTPAuth, true),
		SSL:                ssl,
		InsecureSkipVerify: strings.TrimSpace(props.Get(config.KeySMTPSSLTrust)) == "*",
		LocalName:          props.GetDefault(config.KeySMTPLocalhost, ""),
	}
}
