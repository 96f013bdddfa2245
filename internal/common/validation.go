package common

import (
	"regexp"
	"strings"
)

var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func ValidateHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if len(handle) < 3 || len(handle) > 50 {
		return NewValidationError("handle must be between 3 and 50 characters")
	}

	if !handleRegex.MatchString(handle) {
		return NewValidationError("handle can only contain letters, numbers, and underscores")
	}

	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return NewValidationError("password must be atleast 6 characters long")
	}

	if len(password) > 100 {
		return NewValidationError("password is too long")
	}

	return nil
}

// ValidateOutgoing rejects a message with nothing to send. Checked before
// any network call.
func ValidateOutgoing(text, image string) error {
	if strings.TrimSpace(text) == "" && image == "" {
		return NewValidationError("message needs text or an image")
	}
	return nil
}
