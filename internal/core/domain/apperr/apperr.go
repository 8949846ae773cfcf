// Package apperr defines the error taxonomy shared by services and transports.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindConflict
	KindTransient
	KindRateLimited
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Code is a stable machine-readable reason callers can branch on.
type Code string

const (
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeEmailNotVerified     Code = "email_not_verified"
	CodeAccountDisabled      Code = "account_disabled"
	CodeTokenInvalid         Code = "token_invalid"
	CodeTokenExpired         Code = "token_expired"
	CodeTokenBlacklisted     Code = "token_blacklisted"
	CodeDuplicateEmail       Code = "duplicate_email"
	CodeInvalidEmail         Code = "invalid_email"
	CodePasswordMismatch     Code = "password_mismatch"
	CodeWeakPassword         Code = "weak_password"
	CodeWrongCurrentPassword Code = "wrong_current_password"
	CodeAlreadyVerified      Code = "already_verified"
	CodeInvalidField         Code = "invalid_field"
	CodeNotFound             Code = "not_found"
	CodeForbidden            Code = "forbidden"
	CodeRateLimited          Code = "rate_limited"
	CodeMailDelivery         Code = "mail_delivery_failed"
	CodeInternal             Code = "internal"
)

// Error is the typed error returned across service boundaries.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Kind == e.Kind
}

// WithField returns a copy of e carrying an extra field message.
func (e *Error) WithField(field, msg string) *Error {
	cp := *e
	cp.Fields = make(map[string][]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = append([]string(nil), v...)
	}
	cp.Fields[field] = append(cp.Fields[field], msg)
	return &cp
}

// RenameField moves messages recorded under from to to.
func (e *Error) RenameField(from, to string) *Error {
	msgs, ok := e.Fields[from]
	if !ok {
		return e
	}
	cp := *e
	cp.Fields = make(map[string][]string, len(e.Fields))
	for k, v := range e.Fields {
		if k != from {
			cp.Fields[k] = v
		}
	}
	cp.Fields[to] = append(cp.Fields[to], msgs...)
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(code Code, msg string) *Error {
	return New(KindValidation, code, msg)
}

// FieldError builds a validation error with a single field message.
func FieldError(code Code, field, msg string) *Error {
	return Validation(code, msg).WithField(field, msg)
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: cause}
}

func Transient(code Code, msg string, cause error) *Error {
	return &Error{Kind: KindTransient, Code: code, Message: msg, Err: cause}
}

// As extracts the typed error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal when untyped.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Sentinels.
var (
	ErrInvalidCredentials   = New(KindAuthentication, CodeInvalidCredentials, "Invalid email or password.")
	ErrEmailNotVerified     = New(KindAuthentication, CodeEmailNotVerified, "Email not verified. Please verify your email to login.")
	ErrTokenInvalid         = New(KindAuthentication, CodeTokenInvalid, "Token is invalid.")
	ErrTokenExpired         = New(KindAuthentication, CodeTokenExpired, "Token has expired.")
	ErrTokenBlacklisted     = New(KindAuthentication, CodeTokenBlacklisted, "Token is blacklisted.")
	ErrDuplicateEmail       = New(KindConflict, CodeDuplicateEmail, "This email is already in use.")
	ErrInvalidEmail         = New(KindValidation, CodeInvalidEmail, "Enter a valid email address.")
	ErrPasswordMismatch     = New(KindValidation, CodePasswordMismatch, "Password fields didn't match.")
	ErrWeakPassword         = New(KindValidation, CodeWeakPassword, "Password does not meet the strength requirements.")
	ErrWrongCurrentPassword = New(KindValidation, CodeWrongCurrentPassword, "Current password is incorrect")
	ErrAlreadyVerified      = New(KindValidation, CodeAlreadyVerified, "Email is already verified.")
	ErrUserNotFound         = New(KindNotFound, CodeNotFound, "User with this email does not exist.")
	ErrNotFound             = New(KindNotFound, CodeNotFound, "Not found.")
	ErrForbidden            = New(KindForbidden, CodeForbidden, "You do not have permission to perform this action.")
	ErrRateLimited          = New(KindRateLimited, CodeRateLimited, "Too many requests. Please try again later.")
)
