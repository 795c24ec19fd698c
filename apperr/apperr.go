// Package apperr holds the error taxonomy shared by the completion engine,
// the sequence scheduler and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDuplicateIssuance signals that a certificate or a sequence step was
// already issued. It is absorbed internally and never reaches callers.
var ErrDuplicateIssuance = errors.New("already issued")

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// AttemptLimitExceededError is returned when a quiz retake is blocked.
type AttemptLimitExceededError struct {
	QuizID      uint
	MaxAttempts int
	Attempts    int
}

func (e *AttemptLimitExceededError) Error() string {
	return fmt.Sprintf("quiz %d: %d of %d attempts used", e.QuizID, e.Attempts, e.MaxAttempts)
}

// StorageError wraps a persistence failure. Callers receive it unchanged.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError. Typed application errors pass through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	var nf *NotFoundError
	var al *AttemptLimitExceededError
	var ve *ValidationError
	if errors.As(err, &se) || errors.As(err, &nf) || errors.As(err, &al) || errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsAttemptLimit(err error) bool {
	var al *AttemptLimitExceededError
	return errors.As(err, &al)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAttemptLimit(err):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
