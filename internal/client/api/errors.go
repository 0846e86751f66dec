package api

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// Sentinel kinds for normalized auth service failures. Match with errors.Is.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNetwork       = errors.New("no response received from the auth service")
	ErrValidation    = errors.New("validation failed")
	ErrRefreshFailed = errors.New("token refresh failed")
	ErrUnknown       = errors.New("unknown auth service error")
)

// AuthError is the single error type every transport or service failure is
// normalized into. Kind is one of the sentinels above; Message is a
// human-readable description safe to show to the user.
type AuthError struct {
	Kind    error
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Unwrap lets errors.Is match an AuthError against its kind sentinel.
func (e *AuthError) Unwrap() error { return e.Kind }

func newAuthError(kind error, message string) *AuthError {
	if message == "" {
		message = kind.Error()
	}
	return &AuthError{Kind: kind, Message: message}
}

// flattenErrorBody turns a service error payload into one display string.
// A field→messages mapping is flattened and joined with spaces (field order
// sorted so the result is stable); a plain JSON string passes through;
// anything else yields "".
func flattenErrorBody(body []byte) string {
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var messages []string
		for _, k := range keys {
			messages = append(messages, fields[k]...)
		}
		return strings.Join(messages, " ")
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return ""
}

// serviceError normalizes a non-2xx response into an AuthError: 401 means
// the credentials or token were rejected, any other 4xx is a validation
// failure, the rest is unknown.
func serviceError(status int, body []byte) *AuthError {
	msg := flattenErrorBody(body)
	switch {
	case status == 401:
		return newAuthError(ErrUnauthorized, msg)
	case status >= 400 && status < 500:
		return newAuthError(ErrValidation, msg)
	default:
		if msg == "" {
			msg = "an unknown error occurred"
		}
		return newAuthError(ErrUnknown, msg)
	}
}
