package stdout

import (
	"bytes"
	"context"
	"errors"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/mailsender-lite/internal/email"
)

func TestSend_BasicEmail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		From:     "sender@example.com",
		FromName: "Reporter",
		ReplyTo:  &mail.Address{Address: "sender@example.com"},
		To:       []*mail.Address{{Address: "alice@example.com"}, {Address: "bob@example.com"}},
		Subject:  "Monthly Report",
		Body:     "Please find the report attached.",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"From: Reporter <sender@example.com>",
		"To: alice@example.com, bob@example.com",
		"Subject: Monthly Report",
		"Body (text/plain):",
		"Please find the report attached.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	for _, unwanted := range []string{"Cc:", "Reply-To:", "Attachments:"} {
		if strings.Contains(output, unwanted) {
			t.Errorf("output should not contain %q:\n%s", unwanted, output)
		}
	}
	if !strings.HasPrefix(output, separator) || !strings.HasSuffix(output, separator) {
		t.Error("output should be framed by separator lines")
	}
}

func TestSend_CcReplyToAndAttachments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	small := filepath.Join(dir, "notes.txt")
	large := filepath.Join(dir, "données.bin")
	if err := os.WriteFile(small, []byte("tiny"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(large, bytes.Repeat([]byte("x"), 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	msg := &email.Email{
		From:    "sender@example.com",
		ReplyTo: &mail.Address{Address: "replies@example.com"},
		To:      []*mail.Address{{Address: "alice@example.com"}},
		Cc:      []*mail.Address{{Address: "carol@example.com"}},
		Subject: "Files",
		Body:    "<b>see files</b>",
		HTML:    true,
		Attachments: []email.Attachment{
			{Path: small, Filename: "notes.txt", ContentType: "text/plain", Size: 4},
			{Path: large, Filename: email.EncodeFilename("données.bin"), ContentType: "application/octet-stream", Size: 2048},
		},
	}

	if err := NewWithWriter(&buf).Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"From: sender@example.com\n",
		"Reply-To: replies@example.com",
		"Cc: carol@example.com",
		"Body (text/html):",
		"<b>see files</b>",
		"Attachments: notes.txt (4 B), données.bin (2.0 KB)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	msg := &email.Email{
		From:    "sender@example.com",
		To:      []*mail.Address{{Address: "alice@example.com"}},
		Subject: "x",
	}
	err := NewWithWriter(failingWriter{}).Send(context.Background(), msg)
	if !errors.Is(err, email.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{15 * 1048576, "15.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
