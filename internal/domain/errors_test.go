package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDomainErrors_Messages tests that every sentinel carries a readable message
func TestDomainErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"company_not_found", ErrCompanyNotFound, "company not found"},
		{"plan_not_found", ErrPlanNotFound, "plan not found"},
		{"charge_not_found", ErrChargeNotFound, "charge not found"},
		{"credential_not_found", ErrCredentialNotFound, "credential not found"},
		{"secret_missing", ErrSecretMissing, "no webhook secret"},
		{"signature_invalid", ErrSignatureInvalid, "signature verification failed"},
		{"payload_invalid", ErrPayloadInvalid, "payload is malformed"},
		{"validation_invalid_id", ErrValidationInvalidID, "invalid identifier"},
		{"validation_invalid_enum", ErrValidationInvalidEnum, "invalid enum value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("expected error to be defined, got nil")
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestDomainError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrorCodeDatabaseError, "load company", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL_DATABASE_ERROR: load company: connection refused", err.Error())
	assert.Equal(t, ErrorCodeDatabaseError, GetErrorCode(fmt.Errorf("outer: %w", err)))
}

func TestDomainError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrPlanNotFound.WithDetail("plan_id", int64(42))

	assert.Equal(t, int64(42), err.Details["plan_id"])
	assert.NotContains(t, ErrPlanNotFound.Details, "plan_id")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestDomainError_Classification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		isNotFound   bool
		isValidation bool
	}{
		{"company not found", ErrCompanyNotFound, true, false},
		{"plan not found wrapped", fmt.Errorf("resolve: %w", ErrPlanNotFound), true, false},
		{"invalid enum", ErrValidationInvalidEnum, false, true},
		{"invalid date", ErrValidationInvalidDate.WithDetail("field", "paymentDate"), false, true},
		{"plain error", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isNotFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.isValidation, IsValidationError(tt.err))
		})
	}
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrSignatureInvalid, ErrorCodeSignatureInvalid))
	assert.False(t, IsDomainError(ErrSignatureInvalid, ErrorCodePayloadInvalid))
	assert.False(t, IsDomainError(errors.New("x"), ErrorCodeSignatureInvalid))
}
