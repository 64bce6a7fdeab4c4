package wiki

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is an error reported in-band by the MediaWiki API, see
// https://www.mediawiki.org/wiki/API:Errors_and_warnings for the codes.
//
// Warnings surface as APIError with Code "warning" unless the gateway is
// configured to ignore them.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: code '%s', info '%s'", e.Code, e.Info)
}

// AuthError signals that the current session is not authorized: a failed
// login or account creation, or a mutating action for which no token could
// be obtained.
type AuthError struct {
	Action string
	Reason string
}

func (e *AuthError) Error() string {
	if e.Action == "" {
		return "unauthorized: " + e.Reason
	}
	return fmt.Sprintf("unauthorized (%s): %s", e.Action, e.Reason)
}

// TransportError covers network failures, non-retryable HTTP statuses and
// bodies that are not MediaWiki API XML.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var sb strings.Builder
	sb.WriteString("transport error")
	if e.Op != "" {
		sb.WriteString(" (" + e.Op + ")")
	}
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf(": status %d", e.StatusCode))
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	if e.Body != "" {
		sb.WriteString(": " + truncate(e.Body, 200))
	}
	return sb.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetriesExceededError is returned when every attempt allowed by the retry
// budget was answered with 503 or a maxlag error.
type RetriesExceededError struct {
	Attempts int
	Warnings []string
}

func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %s", e.Attempts, strings.Join(e.Warnings, "; "))
}

// ValidationError reports invalid arguments passed by the caller, before
// anything is sent to the wiki.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// IsAPIError reports whether err is an APIError. A non-empty code must also
// match.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return code == "" || apiErr.Code == code
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsRetriesExceeded reports whether err is a RetriesExceededError.
func IsRetriesExceeded(err error) bool {
	var retryErr *RetriesExceededError
	return errors.As(err, &retryErr)
}

// errorCode returns a short label for metrics.
func errorCode(err error) string {
	var (
		apiErr       *APIError
		authErr      *AuthError
		transportErr *TransportError
		retryErr     *RetriesExceededError
		validErr     *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &authErr):
		return "unauthorized"
	case errors.As(err, &retryErr):
		return "retries_exceeded"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &validErr):
		return "validation"
	default:
		return "other"
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
