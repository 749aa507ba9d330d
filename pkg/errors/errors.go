// Package errors defines the service's error taxonomy. Pipeline failures are
// classified by a small set of sentinels so the HTTP and CLI layers can map
// them to status codes without knowing how workers communicate.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIO           = errors.New("io failure")
	ErrDispatch     = errors.New("dispatch failure")
	ErrCollect      = errors.New("collect failure")
	ErrFormat       = errors.New("format failure")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTimeout      = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Formatf returns an ErrFormat describing the offending configuration record.
func Formatf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// IO wraps a read/open failure of a document or configuration source.
func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// Stage names the point in a run where a StageError occurred.
type Stage string

const (
	StageRead     Stage = "read"
	StageDispatch Stage = "dispatch"
	StageCollect  Stage = "collect"
)

// StageError reports a failed processing run. Kind is one of the taxonomy
// sentinels; Worker is -1 when the failure is not tied to a worker.
type StageError struct {
	Kind   error
	Stage  Stage
	Worker int
	Err    error
}

func (e *StageError) Error() string {
	if e.Worker >= 0 {
		return fmt.Sprintf("%s stage, worker %d: %v: %v", e.Stage, e.Worker, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s stage: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
