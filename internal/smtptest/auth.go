package smtptest

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	errBadEncoding = errors.New("invalid base64 encoding")
	errBadFormat   = errors.New("invalid AUTH PLAIN format")
	errBadCreds    = errors.New("authentication failed")
)

// credentials holds the account a submission client must log in with.
type credentials struct {
	username string
	password string
}

func (c credentials) required() bool {
	return c.username != "" || c.password != ""
}

// checkPlain verifies an AUTH PLAIN response: base64(authzid \0 user \0 pass).
func (c credentials) checkPlain(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errBadEncoding
	}

	parts := strings.SplitN(string(decoded), "\x00", 3)
	if len(parts) != 3 {
		return "", errBadFormat
	}
	return parts[1], c.match(parts[1], parts[2])
}

// checkLogin verifies the two base64 answers of an AUTH LOGIN exchange.
func (c credentials) checkLogin(encodedUser, encodedPass string) (string, error) {
	user, err := base64.StdEncoding.DecodeString(encodedUser)
	if err != nil {
		return "", errBadEncoding
	}
	pass, err := base64.StdEncoding.DecodeString(encodedPass)
	if err != nil {
		return "", errBadEncoding
	}
	return string(user), c.match(string(user), string(pass))
}

func (c credentials) match(user, pass string) error {
	if user != c.username || pass != c.password {
		return errBadCreds
	}
	return nil
}
