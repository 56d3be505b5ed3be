package rpc

import (
	"context"
	"errors"
	"net/http"

	"restaurant-pos/internal/models"
)

// Error codes carried in failure responses
const (
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeThrottled    = "throttled"
	CodeInternal     = "internal"
)

// Error is the wire form of a failed call. Message is meant for the operator.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Unwrap maps the code back onto the sentinel the backend returned, so
// errors.Is works on both sides of the wire.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return models.ErrNotFound
	case CodeConflict:
		return models.ErrConflict
	case CodeUnauthorized:
		return models.ErrInvalidPIN
	case CodeThrottled:
		return models.ErrThrottled
	default:
		return nil
	}
}

// fromError classifies a service error into an HTTP status and wire error
func fromError(err error) (int, *Error) {
	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, &Error{Code: CodeValidation, Message: verr.Error(), Field: verr.Field}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, &Error{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidPIN):
		return http.StatusUnauthorized, &Error{Code: CodeUnauthorized, Message: err.Error()}
	case errors.Is(err, models.ErrThrottled):
		return http.StatusTooManyRequests, &Error{Code: CodeThrottled, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &Error{Code: CodeInternal, Message: "Request timed out"}
	default:
		return http.StatusInternalServerError, &Error{Code: CodeInternal, Message: "Internal server error"}
	}
}

// toError turns a wire error back into a Go error
func toError(e *Error) error {
	if e.Code == CodeValidation {
		msg := e.Message
		if e.Field != "" && len(msg) > len(e.Field)+2 && msg[:len(e.Field)+2] == e.Field+": " {
			msg = msg[len(e.Field)+2:]
		}
		return models.ValidationError{Field: e.Field, Message: msg}
	}
	return e
}
