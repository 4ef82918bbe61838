// Package ses delivers rendered MIME messages through AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mailsender-lite/internal/email"
)

// Config holds the AWS settings. Empty keys fall back to the default
// credential chain.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the subset of the SES v2 client used for delivery.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport sends each message as raw MIME content.
type Transport struct {
	client SendEmailAPI
	logger *slog.Logger
}

// New loads the AWS configuration and creates an SES client.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(sesv2.NewFromConfig(awsCfg), logger), nil
}

// NewWithClient creates a Transport around an existing client.
func NewWithClient(client SendEmailAPI, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{client: client, logger: logger}
}

// Send renders msg and submits it in a single SendEmail call.
func (t *Transport) Send(ctx context.Context, msg *email.Email) error {
	raw, err := msg.Render()
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: addresses(msg.To),
			CcAddresses: addresses(msg.Cc),
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("%w: SES SendEmail: %v", email.ErrTransport, err)
	}

	t.logger.Debug("message delivered",
		"transport", t.Name(),
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "ses"
}

func addresses(list []*mail.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}
