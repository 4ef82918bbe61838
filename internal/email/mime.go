package email

import (
	"bytes"
	"fmt"
	"mime"
	"net/mail"

	"gopkg.in/gomail.v2"
)

// EncodeFilename returns name as an RFC 2047 B-encoded UTF-8 word. Names that
// need no encoding are returned unchanged.
func EncodeFilename(name string) string {
	return mime.BEncoding.Encode("UTF-8", name)
}

// DecodeFilename reverses EncodeFilename. Undecodable input is returned as is.
func DecodeFilename(encoded string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(encoded)
	if err != nil {
		return encoded
	}
	return decoded
}

// Message renders e as a gomail message: the text or HTML body first,
// followed by one part per attachment.
func (e *Email) Message() *gomail.Message {
	m := gomail.NewMessage()

	m.SetAddressHeader("From", e.From, e.FromName)
	if e.ReplyTo != nil {
		m.SetHeader("Reply-To", m.FormatAddress(e.ReplyTo.Address, e.ReplyTo.Name))
	}
	if len(e.To) > 0 {
		m.SetHeader("To", formatList(m, e.To)...)
	}
	if len(e.Cc) > 0 {
		m.SetHeader("Cc", formatList(m, e.Cc)...)
	}
	m.SetHeader("Subject", e.Subject)
	m.SetBody(e.BodyContentType(), e.Body)

	for _, a := range e.Attachments {
		m.Attach(a.Path,
			gomail.Rename(a.Filename),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {fmt.Sprintf("%s; name=%q", a.ContentType, a.Filename)},
			}),
		)
	}
	return m
}

// Render writes the full MIME message to a byte slice.
func (e *Email) Render() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := e.Message().WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachment, err)
	}
	return buf.Bytes(), nil
}

func formatList(m *gomail.Message, list []*mail.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, m.FormatAddress(a.Address, a.Name))
	}
	return out
}
