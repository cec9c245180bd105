package domainerrors

import (
	"errors"
	"time"
)

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Sign-in and session resolution
	CodeInvalidCredential   Code = "invalid_credential"
	CodeAccountLocked       Code = "account_locked"
	CodeAccountInactive     Code = "account_inactive"
	CodeEmailUnverified     Code = "email_unverified"
	CodeProfileNotFound     Code = "profile_not_found"
	CodeProviderUnavailable Code = "provider_unavailable"

	// Item and claim workflow
	CodeSelfClaim           Code = "self_claim"
	CodeDuplicatePending    Code = "duplicate_pending"
	CodeAlreadyTransitioned Code = "already_transitioned"
	CodeInProgress          Code = "in_progress"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
//
// Remedy is the user-facing next step (for example "try again in 4 minutes").
// UnlockAt is only set for CodeAccountLocked.
type Error struct {
	Code     Code
	Message  string
	Remedy   string
	UnlockAt *time.Time
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// WithRemedy creates a domain error carrying a user-facing remedy.
func WithRemedy(code Code, msg, remedy string) error {
	return &Error{Code: code, Message: msg, Remedy: remedy}
}

// Locked creates a CodeAccountLocked error that reports when sign-in reopens.
func Locked(unlockAt time.Time, remedy string) error {
	t := unlockAt
	return &Error{
		Code:     CodeAccountLocked,
		Message:  "account temporarily locked after repeated failed sign-ins",
		Remedy:   remedy,
		UnlockAt: &t,
	}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Remedy: existing.Remedy, UnlockAt: existing.UnlockAt, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the domain code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsSoft reports whether err is guidance the caller should show as-is and not retry.
func IsSoft(err error) bool {
	return IsSoftCode(CodeOf(err))
}

// IsSoftCode is IsSoft for a bare code.
func IsSoftCode(code Code) bool {
	switch code {
	case CodeAlreadyTransitioned, CodeDuplicatePending, CodeSelfClaim, CodeInProgress:
		return true
	}
	return false
}
