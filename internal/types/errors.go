//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
)

// InvalidArgumentError indicates a malformed request value (pagination, empty
// job skills, out-of-range k). The message is echoed to the caller verbatim.
type InvalidArgumentError struct {
	Field   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

// NotFoundError indicates an unknown document, job or user id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// UnauthorizedError indicates a missing or invalid credential.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// ForbiddenError indicates the caller's role does not permit the operation.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("recruiter role required to %s", e.Action)
}

// ConflictError indicates a reused idempotency key, with a different payload
// or while its first request still runs, or any other uniqueness violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewInvalidArgument is shorthand for &InvalidArgumentError{...}.
func NewInvalidArgument(field, format string, args ...any) error {
	return &InvalidArgumentError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidArgument reports whether err wraps an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}
