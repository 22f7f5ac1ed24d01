package quorum

import (
	"errors"
	"fmt"
)

// NotFoundError signals that the target of an operation does not exist.
type NotFoundError struct {
	what string
}

func NotFound(what string) *NotFoundError {
	return &NotFoundError{what: what}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v not found", e.what)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// ForbiddenError signals a business-rule authorization failure, like voting
// on one's own content or accepting an answer on someone else's question.
type ForbiddenError struct {
	reason string
}

func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{reason: reason}
}

func (e *ForbiddenError) Error() string {
	return e.reason
}

// IsForbidden reports whether err wraps a ForbiddenError.
func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

// InvalidInputError signals malformed or out-of-enum request fields,
// rejected before any transaction opens.
type InvalidInputError struct {
	fieldNames []string
}

func InvalidInput(fieldNames ...string) *InvalidInputError {
	return &InvalidInputError{fieldNames: fieldNames}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %v", e.fieldNames)
}

// IsInvalidInput reports whether err wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

// ErrConflict is returned by the store when the database detects a
// serialization failure or a deadlock. The whole operation is safe to retry
// from scratch, preconditions included.
var ErrConflict = errors.New("storage conflict, retry the operation")

// IsRetryable reports whether err wraps ErrConflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
