package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

// Error is a caller-visible failure. It matches its Kind with errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) Unwrap() error {
	return err.Kind
}

func (err *Error) StatusCode() int {
	return statusCodeFor(err.Kind)
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) error {
	return &Error{Kind: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// UnfilledSlotsError reports a week that ran out of eligible recipes after
// Filled of Total slots.
type UnfilledSlotsError struct {
	Filled int
	Total  int
}

func (err *UnfilledSlotsError) Error() string {
	return fmt.Sprintf("unable to fill all slots: not enough eligible recipes, filled %d/%d", err.Filled, err.Total)
}

func (err *UnfilledSlotsError) Unwrap() error {
	return ErrConflict
}

func (err *UnfilledSlotsError) StatusCode() int {
	return http.StatusConflict
}

// StatusCode maps any error to the HTTP status of its kind, 500 otherwise.
func StatusCode(err error) int {
	var statusError interface{ StatusCode() int }
	if errors.As(err, &statusError) {
		return statusError.StatusCode()
	}
	return statusCodeFor(err)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
