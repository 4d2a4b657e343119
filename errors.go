package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ErrorKind classifies failures surfaced by the package
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindTransientStore     ErrorKind = "transient_store"
	KindInternal           ErrorKind = "internal"
)

// Error is a structured error carrying a kind and a human readable message.
type Error struct {
	Kind     ErrorKind
	Message  string
	Err      error
	Metadata map[string]any
}

// NewError creates a new error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps err with a kind and message
func WrapError(err error, kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and message, so wrapped sentinels
// keep working with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Clone returns a shallow copy, used before attaching metadata to a sentinel
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithMetadata merges the given metadata into the error
func (e *Error) WithMetadata(md map[string]any) *Error {
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	for k, v := range md {
		e.Metadata[k] = v
	}
	return e
}

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = NewError(KindNotFound, "User not found")

// ErrInvalidCredentials is returned for any failed login. It never
// discloses whether the email or the password was wrong.
var ErrInvalidCredentials = NewError(KindInvalidCredentials, "Invalid login or password")

// ErrDuplicateEmail is returned when registering an email already in use
var ErrDuplicateEmail = NewError(KindDuplicateEmail, "Email is already registered")

// ErrDuplicateUsername is returned when registering a username already in use
var ErrDuplicateUsername = NewError(KindValidation, "Username is already taken")

// ErrUnauthorized is returned for missing or unusable tokens
var ErrUnauthorized = NewError(KindUnauthorized, "Unauthorized access")

// ErrTokenExpired token expired
var ErrTokenExpired = NewError(KindUnauthorized, "token is expired")

// ErrTokenMalformed token is malformed or its signature does not verify
var ErrTokenMalformed = NewError(KindUnauthorized, "token is malformed")

// ErrForbidden principal lacks the role required by the route
var ErrForbidden = NewError(KindForbidden, "Forbidden")

// ErrUnknownRole role name is not declared
var ErrUnknownRole = NewError(KindValidation, "Role is not declared")

// ErrMissingSigningKey no signing secret configured
var ErrMissingSigningKey = NewError(KindInternal, "JWT signing secret is missing")

// ErrWeakSigningKey signing secret is shorter than the configured minimum
var ErrWeakSigningKey = NewError(KindInternal, "JWT signing secret is too short")

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = NewError(KindValidation, "password must not be empty")

// ErrPasswordTooLong password exceeds MaxPasswordBytes
var ErrPasswordTooLong = NewError(KindValidation, "password must be no more than 72 bytes")

// ErrMismatchedHashAndPassword password does not match the stored hash
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// ErrUnableToParseData parse error
var ErrUnableToParseData = NewError(KindValidation, "unable to parse data")

// KindOf returns the kind of err, KindInternal for plain errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind checks whether err is of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the HTTP layer responds with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindTransientStore:
		return http.StatusServiceUnavailable
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError converts ozzo-validation errors to a validation kind
// error keeping the per field messages.
func ValidationError(err error) *Error {
	if err == nil {
		return nil
	}

	out := WrapError(err, KindValidation, "Validation failed")

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
		out.WithMetadata(map[string]any{"fields": fields})
	}

	return out
}

// TransientError wraps a collaborator I/O failure
func TransientError(err error, message string) *Error {
	return WrapError(err, KindTransientStore, message)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
