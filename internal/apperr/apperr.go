// Package apperr defines the typed failures raised by services and translated
// once, at the HTTP boundary, into the response envelope.
package apperr

import (
	"errors"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation     = "VALIDATION_FAILED"
	TextCodeConflict       = "CONFLICT"
	TextCodeUnauthorized   = "UNAUTHORIZED"
	TextCodeForbidden      = "FORBIDDEN"
	TextCodeNotFound       = "NOT_FOUND"
	TextCodeInternal       = "INTERNAL"
	dependencyPublicReason = "internal server error"
)

// FieldError is a single per-field validation message.
type FieldError = goerrors.FieldError

func Validation(message string, fields ...FieldError) error {
	if len(fields) > 0 {
		return goerrors.NewValidation(message, fields...).
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeValidation)
	}
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

func Conflict(message string) error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeConflict)
}

// Unauthenticated messages are deliberately uninformative; callers pass one
// of the shared messages below rather than describing the cause.
func Unauthenticated(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

func Forbidden(message string) error {
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(TextCodeForbidden)
}

func NotFound(message string) error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// Dependency wraps an unexpected store or blob failure. The cause is kept for
// logging but never rendered to the caller.
func Dependency(err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal)
}

// Shared authentication messages.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgInvalidToken       = "invalid token"
	MsgMissingToken       = "no token provided"
	MsgAdminRequired      = "admin access required"
)

// Status returns the HTTP status for err, defaulting to 500 for anything
// that is not a classified application error.
func Status(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that may be shown to a caller.
func PublicMessage(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category == goerrors.CategoryInternal {
		return dependencyPublicReason
	}
	return rich.Message
}

// Fields returns the validation messages attached to err, if any.
func Fields(err error) []FieldError {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return nil
	}
	return rich.AllValidationErrors()
}

// FromValidation converts the result of an ozzo-validation run into a
// Validation error carrying one FieldError per offending field. Nil stays nil.
func FromValidation(message string, err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return Validation(err.Error())
	}
	fields := make([]FieldError, 0, len(errs))
	collectFields("", errs, &fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return Validation(message, fields...)
}

func collectFields(prefix string, errs validation.Errors, out *[]FieldError) {
	for name, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			collectFields(name, nested, out)
			continue
		}
		*out = append(*out, FieldError{Field: name, Message: fieldErr.Error()})
	}
}
