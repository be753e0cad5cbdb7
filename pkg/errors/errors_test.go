package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := &Error{
		Type:    ErrorTypeRateLimit,
		Message: "too many requests",
		Code:    429,
	}

	expected := "rate_limit error (code 429): too many requests"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestNew(t *testing.T) {
	err := New(ErrorTypeAuth, "invalid token")
	if err.Type != ErrorTypeAuth {
		t.Errorf("Expected type auth, got %s", err.Type)
	}
	if err.Message != "invalid token" {
		t.Errorf("Unexpected message: %s", err.Message)
	}
	if err.Code != 0 {
		t.Errorf("Expected zero code, got %d", err.Code)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeActorFailed, "actor run %s ended with status %s", "run-1", "FAILED")
	if err.Message != "actor run run-1 ended with status FAILED" {
		t.Errorf("Unexpected message: %s", err.Message)
	}
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", New(ErrorTypeNetwork, "connection reset"))

	var apiErr *Error
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("Expected errors.As to unwrap *Error")
	}
	if apiErr.Type != ErrorTypeNetwork {
		t.Errorf("Expected network type, got %s", apiErr.Type)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		retryable bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParsing, false},
		{ErrorTypeQuota, false},
		{ErrorTypeActorFailed, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			if got := IsRetryable(tt.errorType); got != tt.retryable {
				t.Errorf("IsRetryable(%s) = %t, want %t", tt.errorType, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{505, true},
		{200, false},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatusCode(tt.code); got != tt.retryable {
			t.Errorf("IsRetryableStatusCode(%d) = %t, want %t", tt.code, got, tt.retryable)
		}
	}
}
