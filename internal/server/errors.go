package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/coldmail/internal/composer"
	"github.com/jonathan/coldmail/internal/session"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNoResults indicates an action that needs a successful session was called in another state
type ErrNoResults struct {
	Status session.Status
}

func (e *ErrNoResults) Error() string {
	return fmt.Sprintf("no generated emails to act on (session is %s)", e.Status)
}

// ErrEmailNotFound indicates an email index outside the displayed results
type ErrEmailNotFound struct {
	Index int
}

func (e *ErrEmailNotFound) Error() string {
	return fmt.Sprintf("email not found: %d", e.Index)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		composerErr   *composer.ValidationError
		noResultsErr  *ErrNoResults
		notFoundErr   *ErrEmailNotFound
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &composerErr):
		return http.StatusBadRequest
	case errors.As(err, &noResultsErr):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
