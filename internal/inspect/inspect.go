// Package inspect reads back a rendered RFC 5322 message with MIME multipart
// support, decoding transfer encodings and RFC 2047 encoded words.
package inspect

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Message is the decoded view of a rendered message.
type Message struct {
	Header      mail.Header
	From        string
	FromName    string
	ReplyTo     string
	To          []string
	Cc          []string
	Subject     string
	ContentType string
	// BodyType is the media type of the first text part.
	BodyType    string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment is a decoded non-body part.
type Attachment struct {
	// Filename is the decoded display name.
	Filename string
	// RawFilename is the filename parameter as it appeared on the wire.
	RawFilename string
	ContentType string
	Content     []byte
}

var decoder = new(mime.WordDecoder)

// Parse decodes a raw message. Unrecognized MIME parts are logged and skipped.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &Message{Header: msg.Header}
	if from, err := msg.Header.AddressList("From"); err == nil && len(from) > 0 {
		result.From = from[0].Address
		result.FromName = from[0].Name
	}
	if reply, err := msg.Header.AddressList("Reply-To"); err == nil && len(reply) > 0 {
		result.ReplyTo = reply[0].Address
	}
	result.To = addresses(msg.Header, "To")
	result.Cc = addresses(msg.Header, "Cc")
	result.Subject = decodeHeader(msg.Header.Get("Subject"))

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type %q: %w", contentType, err)
	}
	result.ContentType = mediaType

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, errors.New("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	body, err := readContent(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	setBody(result, mediaType, body)
	return result, nil
}

func parseMultipart(body io.Reader, boundary string, result *Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		// NextPart strips quoted-printable transfer encoding on its own.
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}
		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if err := parseMultipart(part, params["boundary"], result); err != nil {
				slog.Warn("failed to parse nested multipart", "error", err)
			}
			continue
		}

		content, err := readContent(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		disposition, dispParams, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		rawName := dispParams["filename"]
		if rawName == "" {
			rawName = params["name"]
		}

		if disposition == "attachment" || (rawName != "" && !isText(mediaType)) {
			result.Attachments = append(result.Attachments, Attachment{
				Filename:    decodeHeader(rawName),
				RawFilename: rawName,
				ContentType: mediaType,
				Content:     content,
			})
			continue
		}

		if isText(mediaType) {
			setBody(result, mediaType, content)
			continue
		}
		slog.Warn("unrecognized MIME part, skipping",
			"content_type", mediaType,
			"disposition", disposition,
		)
	}
}

func setBody(result *Message, mediaType string, body []byte) {
	if result.BodyType == "" {
		result.BodyType = mediaType
	}
	switch mediaType {
	case "text/html":
		if result.HTMLBody == "" {
			result.HTMLBody = string(body)
		}
	default:
		if result.TextBody == "" {
			result.TextBody = string(body)
		}
	}
}

func isText(mediaType string) bool {
	return mediaType == "text/plain" || mediaType == "text/html"
}

// readContent reads r fully and undoes the given Content-Transfer-Encoding.
func readContent(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	default:
		return io.ReadAll(r)
	}
}

func decodeHeader(s string) string {
	decoded, err := decoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func addresses(h mail.Header, key string) []string {
	if h.Get(key) == "" {
		return nil
	}
	list, err := h.AddressList(key)
	if err != nil {
		slog.Warn("failed to parse address header", "header", key, "error", err)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addr.Address)
	}
	return out
}
