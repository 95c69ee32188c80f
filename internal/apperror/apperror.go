// Package apperror defines the error kinds surfaced to API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindDuplicateEmail     Kind = "DuplicateEmail"
	KindDuplicateUsername  Kind = "DuplicateUsername"
	KindDuplicateReview    Kind = "DuplicateReview"
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindInvalidOTP         Kind = "InvalidOtp"
	KindOTPCooldown        Kind = "OtpCooldown"
	KindInvalidToken       Kind = "InvalidToken"
	KindUnauthenticated    Kind = "Unauthenticated"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFound"
	KindInternal           Kind = "InternalError"
)

// Error is an error with a client-safe message
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.ErrInvalidOTP) works
// for errors carrying extra details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Status maps the kind to an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindDuplicateEmail, KindDuplicateUsername, KindDuplicateReview,
		KindInvalidCredentials, KindInvalidOTP, KindOTPCooldown, KindInvalidToken:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails returns a copy carrying details, leaving shared sentinels untouched
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrDuplicateEmail     = New(KindDuplicateEmail, "Email is already registered")
	ErrDuplicateUsername  = New(KindDuplicateUsername, "Username is already taken")
	ErrDuplicateReview    = New(KindDuplicateReview, "You have already reviewed this product")
	ErrInvalidCredentials = New(KindInvalidCredentials, "Invalid email or password")
	ErrInvalidOTP         = New(KindInvalidOTP, "Invalid or expired OTP")
	ErrInvalidResetToken  = New(KindInvalidToken, "Invalid or expired reset token")
	ErrUnauthenticated    = New(KindUnauthenticated, "Authentication required")
	ErrInvalidSession     = New(KindUnauthenticated, "Invalid or expired token")
	ErrForbidden          = New(KindForbidden, "Access denied")
	ErrAccountInactive    = New(KindForbidden, "Account is not active")
)

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func Internal(err error) *Error {
	return Wrap(err, KindInternal, "Internal server error")
}

// OTPCooldown reports the seconds a client must wait before requesting another code
func OTPCooldown(retryAfterSeconds int) *Error {
	return &Error{
		Kind:    KindOTPCooldown,
		Message: fmt.Sprintf("Please wait %d seconds before requesting a new OTP", retryAfterSeconds),
		Details: map[string]int{"retryAfter": retryAfterSeconds},
	}
}

// From extracts an *Error from err, or wraps it as internal
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
