// Package email defines the outbound message model and composes it from
// configuration and caller-supplied fields.
package email

import "net/mail"

// Email is a single outbound message. It is built fresh for every send and
// discarded after the transmission attempt.
type Email struct {
	From        string
	FromName    string
	ReplyTo     *mail.Address
	To          []*mail.Address
	Cc          []*mail.Address
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Attachment is a file sent alongside the body.
type Attachment struct {
	// Path is where the content is read from at send time.
	Path string
	// Filename is the RFC 2047 encoded display name.
	Filename string
	// ContentType is derived from the original file extension.
	ContentType string
	Size        int64
}

// Recipients returns the envelope recipients (To followed by Cc).
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc))
	for _, a := range e.To {
		out = append(out, a.Address)
	}
	for _, a := range e.Cc {
		out = append(out, a.Address)
	}
	return out
}

// BodyContentType returns the MIME type of the body part.
func (e *Email) BodyContentType() string {
	if e.HTML {
		return "text/html"
	}
	return "text/plain"
}

// AttachmentBytes returns the total size of all attachments.
func (e *Email) AttachmentBytes() int64 {
	var total int64
	for _, a := range e.Attachments {
		total += a.Size
	}
	return total
}
