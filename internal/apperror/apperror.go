// Package apperror defines the failure taxonomy raised by services and the classifier that
// flattens any failure into the status, message and error list carried by the response envelope.
package apperror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Kind identifies a failure class.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindUpstream       Kind = "upstream"
	KindTimeout        Kind = "timeout"
	KindInternal       Kind = "internal"
)

const (
	genericInternalMessage = "Internal Server Error"
	validationMessage      = "Validation failed"
	timeoutMessage         = "Request timed out"
	cancelledMessage       = "Request cancelled"
)

// Error is a failure raised deliberately by domain code. Its status, message and errors are
// passed through the classifier unchanged.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Errors  []string
	Err     error
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

// Is matches two *Error values of the same kind and message so sentinel-style comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Status == t.Status && e.Message == t.Message
}

func newError(kind Kind, status int, message string, errs []string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Errors: errs}
}

// Validation reports malformed or missing input.
func Validation(message string, errs ...string) *Error {
	return newError(KindValidation, http.StatusBadRequest, message, errs)
}

// InvalidID reports a reference that does not match the opaque ID format.
func InvalidID(entity string) *Error {
	return Validation(fmt.Sprintf("Invalid %s ID", entity))
}

// Unauthenticated reports a missing caller identity.
func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(KindAuthentication, http.StatusUnauthorized, message, nil)
}

// Forbidden reports a caller that may not act on the resource.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Forbidden"
	}
	return newError(KindAuthorization, http.StatusForbidden, message, nil)
}

// NotFound reports an absent entity.
func NotFound(message string) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, nil)
}

// Conflict reports a uniqueness violation. The public contract answers these with 400.
func Conflict(message string) *Error {
	return newError(KindConflict, http.StatusBadRequest, message, nil)
}

// Upstream wraps a failure of the identity provider or an AI provider.
func Upstream(message string, err error) *Error {
	e := newError(KindUpstream, http.StatusBadGateway, message, nil)
	e.Err = err
	if err != nil {
		e.Errors = []string{err.Error()}
	}
	return e
}

// Timeout reports that the request deadline expired.
func Timeout() *Error {
	return newError(KindTimeout, http.StatusGatewayTimeout, timeoutMessage, nil)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	e := newError(KindInternal, http.StatusInternalServerError, genericInternalMessage, nil)
	e.Err = err
	if err != nil {
		e.Errors = []string{err.Error()}
	}
	return e
}

// Classify maps an arbitrary failure to the triple serialized in the response envelope.
func Classify(err error) (int, string, []string) {
	if err == nil {
		return http.StatusOK, "", []string{}
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Message, nonNil(appErr.Errors)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, validationMessage, FieldErrors(validationErrs)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, "Invalid request body", []string{syntaxErr.Error()}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return http.StatusBadRequest, validationMessage, []string{
			fmt.Sprintf("%s: expected %s but got %s", field, typeErr.Type.String(), typeErr.Value),
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		errs := []string{}
		if fiberErr.Code >= http.StatusInternalServerError {
			errs = append(errs, fiberErr.Message)
			return fiberErr.Code, genericInternalMessage, errs
		}
		return fiberErr.Code, fiberErr.Message, errs
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, "Resource not found", []string{}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, timeoutMessage, []string{}
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, cancelledMessage, []string{}
	}

	return http.StatusInternalServerError, genericInternalMessage, []string{err.Error()}
}

// FieldErrors renders one message per violated field.
func FieldErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, describeField(fe))
	}
	return out
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unitFor(fe.Kind()))
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unitFor(fe.Kind()))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, strings.ToLower(fe.Param()))
	case "dive":
		return fmt.Sprintf("%s contains an invalid item", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func unitFor(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}

func nonNil(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	return errs
}
