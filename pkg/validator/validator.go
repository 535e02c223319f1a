// Package validator checks request payloads before any side effect.
package validator

import (
	"strings"
)

const MinPasswordLength = 6

// Error carries a machine-readable reason code alongside the user-facing
// message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func ValidateSignup(fullName, email, password string) *Error {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" || password == "" {
		return &Error{Code: "MISSING_FIELDS", Message: "All fields are required"}
	}
	if len(password) < MinPasswordLength {
		return &Error{Code: "PASSWORD_TOO_SHORT", Message: "Password must be at least 6 characters"}
	}
	return nil
}

func ValidateLogin(email, password string) *Error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &Error{Code: "MISSING_FIELDS", Message: "All fields are required"}
	}
	return nil
}
