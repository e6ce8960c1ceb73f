package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Company Errors (COMPANY_*)
	ErrorCodeCompanyNotFound ErrorCode = "COMPANY_NOT_FOUND"

	// Plan Errors (PLAN_*)
	ErrorCodePlanNotFound ErrorCode = "PLAN_NOT_FOUND"

	// Charge Errors (CHARGE_*)
	ErrorCodeChargeNotFound ErrorCode = "CHARGE_NOT_FOUND"

	// Credential Errors (CREDENTIAL_*)
	ErrorCodeCredentialNotFound ErrorCode = "CREDENTIAL_NOT_FOUND"
	ErrorCodeSecretMissing      ErrorCode = "CREDENTIAL_SECRET_MISSING"

	// Webhook Errors (WEBHOOK_*)
	ErrorCodeSignatureInvalid ErrorCode = "WEBHOOK_SIGNATURE_INVALID"
	ErrorCodePayloadInvalid   ErrorCode = "WEBHOOK_PAYLOAD_INVALID"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationInvalidID    ErrorCode = "VALIDATION_INVALID_ID"
	ErrorCodeValidationInvalidEnum  ErrorCode = "VALIDATION_INVALID_ENUM"
	ErrorCodeValidationInvalidDate  ErrorCode = "VALIDATION_INVALID_DATE"
	ErrorCodeValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so sentinel values work with errors.Is
// even after WithDetail produced a copy.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Sentinels are shared, so they are never mutated in place.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeCompanyNotFound ||
		code == ErrorCodePlanNotFound ||
		code == ErrorCodeChargeNotFound ||
		code == ErrorCodeCredentialNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationInvalidID ||
		code == ErrorCodeValidationInvalidEnum ||
		code == ErrorCodeValidationInvalidDate ||
		code == ErrorCodeValidationMissingField
}

var (
	ErrCompanyNotFound    = NewDomainError(ErrorCodeCompanyNotFound, "company not found")
	ErrPlanNotFound       = NewDomainError(ErrorCodePlanNotFound, "plan not found")
	ErrChargeNotFound     = NewDomainError(ErrorCodeChargeNotFound, "charge not found")
	ErrCredentialNotFound = NewDomainError(ErrorCodeCredentialNotFound, "credential not found")
	ErrSecretMissing      = NewDomainError(ErrorCodeSecretMissing, "credential has no webhook secret")

	ErrSignatureInvalid = NewDomainError(ErrorCodeSignatureInvalid, "webhook signature verification failed")
	ErrPayloadInvalid   = NewDomainError(ErrorCodePayloadInvalid, "webhook payload is malformed")

	ErrValidationFailed       = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationInvalidID    = NewDomainError(ErrorCodeValidationInvalidID, "invalid identifier")
	ErrValidationInvalidEnum  = NewDomainError(ErrorCodeValidationInvalidEnum, "invalid enum value")
	ErrValidationInvalidDate  = NewDomainError(ErrorCodeValidationInvalidDate, "invalid date")
	ErrValidationMissingField = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
