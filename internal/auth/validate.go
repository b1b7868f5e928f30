package auth

import (
	"regexp"
	"strings"

	"github.com/taskdeck/taskdeck/internal/api"
)

// emailPattern accepts local@domain.tld shapes. Full RFC 5322 checking is
// the server's job; this only catches obvious typos before a round trip.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &api.ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &api.ValidationError{Field: "email", Message: "enter a valid email address"}
	}
	return nil
}

func validateUsername(username string) error {
	if len(strings.TrimSpace(username)) < minUsernameLen {
		return &api.ValidationError{
			Field:   "username",
			Message: "username must be at least 3 characters",
		}
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLen {
		return &api.ValidationError{
			Field:   "password",
			Message: "password must be at least 8 characters",
		}
	}
	if password != confirm {
		return &api.ValidationError{
			Field:   "password_confirm",
			Message: "passwords do not match",
		}
	}
	return nil
}
