// Package apierror provides standardized error response structures for the API
// and the domain error kinds every service returns.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, store errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// ── Domain error kinds ────────────────────────────────────────────────────────

var (
	// ErrValidacion: bad input; the operation was aborted before any write.
	ErrValidacion = errors.New("validación")
	// ErrNoEncontrado: the id is no longer present in the store.
	ErrNoEncontrado = errors.New("no encontrado")
	// ErrPersistencia: the store rejected the write; nothing was committed.
	ErrPersistencia = errors.New("persistencia")
)

// DomainError carries the user-facing message together with its kind.
// errors.Is(err, ErrValidacion) and friends match on Kind.
type DomainError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *DomainError) Is(target error) bool { return target == e.Kind }

func (e *DomainError) Unwrap() error { return e.Err }

func Validacion(format string, args ...any) error {
	return &DomainError{Kind: ErrValidacion, Msg: fmt.Sprintf(format, args...)}
}

func NoEncontrado(format string, args ...any) error {
	return &DomainError{Kind: ErrNoEncontrado, Msg: fmt.Sprintf(format, args...)}
}

func Persistencia(msg string, err error) error {
	return &DomainError{Kind: ErrPersistencia, Msg: msg, Err: err}
}

// Status maps an error returned by a service to the HTTP status the API uses.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidacion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, ErrPersistencia):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Mensaje returns the text that is safe to show to the client.
// Wrapped causes of persistence failures and unknown errors stay in the log.
func Mensaje(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Msg
	}
	return "Error interno del servidor"
}
