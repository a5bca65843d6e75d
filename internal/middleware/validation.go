package middleware

import (
	"errors"
	"net/mail"
	"unicode/utf8"
)

// ValidateMessageContent validates chat message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email address")
	}
	return nil
}

// ValidatePassword validates a registration password.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 72 { // bcrypt input limit
		return errors.New("password exceeds maximum length")
	}
	return nil
}

// ValidateNickname validates a display name.
func ValidateNickname(nickname string) error {
	if len(nickname) > 64 {
		return errors.New("nickname exceeds maximum length")
	}
	if !utf8.ValidString(nickname) {
		return errors.New("nickname must be valid UTF-8")
	}
	return nil
}

// ValidatePersonaID validates a persona id path parameter.
func ValidatePersonaID(id string) error {
	if id == "" {
		return errors.New("persona ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("persona ID exceeds maximum length")
	}
	return nil
}
