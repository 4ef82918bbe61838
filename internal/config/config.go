// Package config provides properties-style mail configuration loaded from a
// .properties or YAML file, with environment variable overrides and a lazily
// resolved process-wide instance.
package config

import (
	"maps"
	"strconv"
	"strings"
)

// DefaultPath is the configuration file looked up when no path is set.
const DefaultPath = "email.properties"

// Well-known configuration keys.
const (
	KeyUser              = "mail.user"
	KeyPassword          = "mail.password"
	KeyFromAddress       = "email.from.address"
	KeyFromPersonal      = "email.from.personal"
	KeyReplyAddress      = "email.reply.address"
	KeyProtocol          = "mail.transport.protocol"
	KeySMTPHost          = "mail.smtp.host"
	KeySMTPPort          = "mail.smtp.port"
	KeySMTPAuth          = "mail.smtp.auth"
	KeySMTPSSLEnable     = "mail.smtp.ssl.enable"
	KeySMTPSSLTrust      = "mail.smtp.ssl.trust"
	KeySMTPLocalhost     = "mail.smtp.localhost"
	KeySESRegion         = "mail.ses.region"
	KeySESAccessKeyID    = "mail.ses.access.key.id"
	KeySESSecretKey      = "mail.ses.secret.access.key"
	KeyAttachmentMaxSize = "email.attachment.max.bytes"
)

// Properties is an immutable set of string key/value pairs.
// The zero value is an empty configuration.
type Properties struct {
	values map[string]string
}

// NewProperties copies m into a new Properties.
func NewProperties(m map[string]string) Properties {
	values := make(map[string]string, len(m))
	maps.Copy(values, m)
	return Properties{values: values}
}

// Lookup returns the value for key and whether it was present.
func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Get returns the value for key, or "" when absent.
func (p Properties) Get(key string) string {
	return p.values[key]
}

// GetDefault returns the value for key, or def when absent or blank.
func (p Properties) GetDefault(key, def string) string {
	if v := strings.TrimSpace(p.values[key]); v != "" {
		return v
	}
	return def
}

// Bool parses key as a boolean, returning def when absent or unparseable.
func (p Properties) Bool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Int parses key as an integer, returning def when absent or unparseable.
func (p Properties) Int(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Int64 is Int for 64-bit values.
func (p Properties) Int64(key string, def int64) int64 {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Len returns the number of keys.
func (p Properties) Len() int {
	return len(p.values)
}

// IsEmpty reports whether no keys are set.
func (p Properties) IsEmpty() bool {
	return len(p.values) == 0
}

// Map returns a copy of the underlying key/value pairs.
func (p Properties) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	maps.Copy(out, p.values)
	return out
}

// With returns a copy of p with key set to value.
func (p Properties) With(key, value string) Properties {
	out := p.Map()
	out[key] = value
	return Properties{values: out}
}
