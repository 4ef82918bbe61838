package smtptest

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errAuthFailed = errors.New("authentication failed")

// authenticator verifies AUTH PLAIN and AUTH LOGIN credentials.
type authenticator struct {
	username string
	password string
}

// enabled reports whether the server requires authentication.
func (a authenticator) enabled() bool {
	return a.username != "" || a.password != ""
}

// verifyPlain checks base64(authzid \0 authcid \0 password).
func (a authenticator) verifyPlain(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("invalid base64 encoding")
	}

	parts := strings.SplitN(string(decoded), "\x00", 3)
	if len(parts) != 3 {
		return errors.New("invalid AUTH PLAIN format")
	}
	if parts[1] != a.username || parts[2] != a.password {
		return errAuthFailed
	}
	return nil
}

func (a authenticator) verifyLogin(encodedUser, encodedPass string) error {
	user, err := base64.StdEncoding.DecodeString(encodedUser)
	if err != nil {
		return errors.New("invalid base64 username")
	}
	pass, err := base64.StdEncoding.DecodeString(encodedPass)
	if err != nil {
		return errors.New("invalid base64 password")
	}
	if string(user) != a.username || string(pass) != a.password {
		return errAuthFailed
	}
	return nil
}
