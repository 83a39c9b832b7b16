package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// HTTPStatus returns the HTTP status code for an error returned by a
// service.
func HTTPStatus(err error) int {
	var (
		unauthorized *types.UnauthorizedError
		forbidden    *types.ForbiddenError
		conflict     *types.ConflictError
		credentials  *ErrInvalidCredentials
		emailTaken   *store.ErrEmailTaken
		validation   validator.ValidationErrors
		tooLarge     *http.MaxBytesError
	)
	switch {
	case types.IsInvalidArgument(err), errors.As(err, &validation):
		return http.StatusBadRequest
	case types.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &unauthorized), errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &conflict), errors.As(err, &emailTaken):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// validationMessage turns validator errors into a client-facing message.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		// First failure only
		return fmt.Sprintf("validation error: %s - %s", ve[0].Field(), ve[0].Tag())
	}
	return err.Error()
}
