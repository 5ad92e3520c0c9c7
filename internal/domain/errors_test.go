package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		contains []string
	}{
		{
			name:     "without_cause",
			err:      NewDomainError(ErrorCodeSessionNotFound, "no session stored under id sess-1"),
			contains: []string{"PaymentSessionNotFound", "sess-1"},
		},
		{
			name:     "with_cause",
			err:      WrapError(ErrorCodeStorageError, "session insert failed", errors.New("connection refused")),
			contains: []string{"SessionStorageError", "session insert failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want substring %q", msg, want)
				}
			}
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := WrapError(ErrorCodeInstrumentBackend, "instrument lookup failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("errors.As should find the DomainError through wrapping")
	}
	if domainErr.Code != ErrorCodeInstrumentBackend {
		t.Errorf("Code = %v, want %v", domainErr.Code, ErrorCodeInstrumentBackend)
	}
}

func TestIsDomainError(t *testing.T) {
	err := NewDomainError(ErrorCodeUnauthorizedMoto, "moto session requires authorization")

	if !IsDomainError(err, ErrorCodeUnauthorizedMoto) {
		t.Error("IsDomainError should match the error's code")
	}
	if IsDomainError(err, ErrorCodeSessionNotFound) {
		t.Error("IsDomainError should not match a different code")
	}
	if IsDomainError(errors.New("plain"), ErrorCodeSessionNotFound) {
		t.Error("IsDomainError should reject non-domain errors")
	}
	if IsDomainError(nil, ErrorCodeSessionNotFound) {
		t.Error("IsDomainError should reject nil")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "domain_error",
			err:  NewDomainError(ErrorCodeInvalidAccountID, "account id is malformed"),
			want: ErrorCodeInvalidAccountID,
		},
		{
			name: "wrapped_domain_error",
			err:  fmt.Errorf("handler: %w", NewDomainError(ErrorCodeSessionInvalid, "session has no pending challenge")),
			want: ErrorCodeSessionInvalid,
		},
		{
			name: "plain_error",
			err:  errors.New("not a domain error"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorCodeOwnershipDenied, "instrument not owned by account").
		WithDetail("accountId", "acct-123").
		WithDetail("instrumentId", "pi-456")

	if err.Details["accountId"] != "acct-123" {
		t.Errorf("Details[accountId] = %v, want acct-123", err.Details["accountId"])
	}
	if err.Details["instrumentId"] != "pi-456" {
		t.Errorf("Details[instrumentId] = %v, want pi-456", err.Details["instrumentId"])
	}
}
