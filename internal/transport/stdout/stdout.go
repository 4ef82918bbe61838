// Package stdout implements a dry-run transport that prints a summary of the
// rendered message instead of delivering it.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/mailsender-lite/internal/email"
	"github.com/shineum/mailsender-lite/internal/inspect"
)

const separator = "========================================\n"

// Transport prints messages in a human-readable format.
type Transport struct {
	writer io.Writer
}

// New creates a Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a Transport that writes to w.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send renders msg, reads it back and prints what a recipient would see.
func (t *Transport) Send(_ context.Context, msg *email.Email) error {
	raw, err := msg.Render()
	if err != nil {
		return err
	}
	parsed, err := inspect.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: rendered message unreadable: %v", email.ErrTransport, err)
	}

	var b strings.Builder
	b.WriteString(separator)
	if parsed.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\n", parsed.FromName, parsed.From)
	} else {
		fmt.Fprintf(&b, "From: %s\n", parsed.From)
	}
	if parsed.ReplyTo != "" && parsed.ReplyTo != parsed.From {
		fmt.Fprintf(&b, "Reply-To: %s\n", parsed.ReplyTo)
	}
	fmt.Fprintf(&b, "To: %s\n", strings.Join(parsed.To, ", "))
	if len(parsed.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(parsed.Cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\n", parsed.Subject)
	fmt.Fprintf(&b, "Body (%s):\n", parsed.BodyType)

	body := parsed.TextBody
	if body == "" {
		body = parsed.HTMLBody
	}
	b.WriteString(body + "\n")

	if len(parsed.Attachments) > 0 {
		attachments := make([]string, 0, len(parsed.Attachments))
		for _, att := range parsed.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}
	b.WriteString(separator)

	if _, err := io.WriteString(t.writer, b.String()); err != nil {
		return fmt.Errorf("%w: %v", email.ErrTransport, err)
	}
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
