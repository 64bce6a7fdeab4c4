package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api", &APIError{Code: "badtoken", Info: "Invalid token"}, "API error: code 'badtoken', info 'Invalid token'"},
		{"auth", &AuthError{Action: "login", Reason: "WrongPass"}, "unauthorized (login): WrongPass"},
		{"auth without action", &AuthError{Reason: "no session"}, "unauthorized: no session"},
		{"transport", &TransportError{Op: "GET", StatusCode: 500, Err: errors.New("bad response"), Body: "oops"}, "transport error (GET): status 500: bad response: oops"},
		{"retries", &RetriesExceededError{Attempts: 2, Warnings: []string{"a.", "b."}}, "giving up after 2 attempts: a.; b."},
		{"validation", &ValidationError{Field: "file", Message: "required"}, "validation failed for file: required"},
		{"validation with value", &ValidationError{Field: "expiry", Value: "soon", Message: "bad"}, `validation failed for expiry="soon": bad`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	apiErr := fmt.Errorf("wrapped: %w", &APIError{Code: "missingtitle"})
	if !IsAPIError(apiErr, "") || !IsAPIError(apiErr, "missingtitle") || IsAPIError(apiErr, "other") {
		t.Error("IsAPIError() misclassified a wrapped APIError")
	}
	if !IsAuthError(&AuthError{}) || IsAuthError(apiErr) {
		t.Error("IsAuthError() wrong")
	}
	if !IsRetriesExceeded(&RetriesExceededError{}) || IsRetriesExceeded(apiErr) {
		t.Error("IsRetriesExceeded() wrong")
	}

	te := &TransportError{Op: "GET", Err: context.DeadlineExceeded}
	if !IsTransportError(te) || !errors.Is(te, context.DeadlineExceeded) {
		t.Error("TransportError does not unwrap")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&APIError{Code: "badtoken"}, "badtoken"},
		{&AuthError{}, "unauthorized"},
		{&RetriesExceededError{}, "retries_exceeded"},
		{&TransportError{}, "transport"},
		{&ValidationError{}, "validation"},
		{errors.New("x"), "other"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTransportErrorTruncatesBody(t *testing.T) {
	err := &TransportError{Body: strings.Repeat("x", 500)}
	if len(err.Error()) > 250 {
		t.Errorf("Error() length = %d", len(err.Error()))
	}
}
