package email

import (
	"fmt"
	"mime"
	"net/mail"
	"os"
	"path/filepath"

	"github.com/shineum/mailsender-lite/internal/config"
)

// Params are the caller-supplied fields of a send.
type Params struct {
	// To and Cc are comma-separated address lists; empty omits the class.
	To string
	Cc string
	// Personal overrides the configured sender display name when non-empty.
	Personal    string
	Subject     string
	Content     string
	HTML        bool
	Attachments []string
}

// Compose builds an Email from configuration and call parameters. It fails
// before any network activity when the configuration is empty, the sender is
// missing, an address does not parse or an attachment cannot be read.
func Compose(props config.Properties, p Params) (*Email, error) {
	if props.IsEmpty() {
		return nil, ErrConfigNotLoaded
	}

	from := props.GetDefault(config.KeyFromAddress, "")
	if from == "" {
		return nil, ErrMissingSender
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidAddress, from, err)
	}

	replyRaw := props.GetDefault(config.KeyReplyAddress, sender.Address)
	replyTo, err := mail.ParseAddress(replyRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: reply-to %q: %v", ErrInvalidAddress, replyRaw, err)
	}

	to, err := ParseAddressList(p.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	cc, err := ParseAddressList(p.Cc)
	if err != nil {
		return nil, fmt.Errorf("cc: %w", err)
	}
	if len(to)+len(cc) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidAddress)
	}

	personal := p.Personal
	if personal == "" {
		personal = props.Get(config.KeyFromPersonal)
	}

	attachments, err := statAttachments(p.Attachments)
	if err != nil {
		return nil, err
	}

	e := &Email{
		From:        sender.Address,
		FromName:    personal,
		ReplyTo:     replyTo,
		To:          to,
		Cc:          cc,
		Subject:     p.Subject,
		Body:        p.Content,
		HTML:        p.HTML,
		Attachments: attachments,
	}

	if limit := props.Int64(config.KeyAttachmentMaxSize, 0); limit > 0 {
		if total := e.AttachmentBytes(); total > limit {
			return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrAttachmentTooLarge, total, limit)
		}
	}
	return e, nil
}

func statAttachments(paths []string) ([]Attachment, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	out := make([]Attachment, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAttachment, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrAttachment, path)
		}

		name := filepath.Base(path)
		out = append(out, Attachment{
			Path:        path,
			Filename:    EncodeFilename(name),
			ContentType: contentTypeOf(name),
			Size:        info.Size(),
		})
	}
	return out, nil
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
