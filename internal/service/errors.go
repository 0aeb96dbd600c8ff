package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/habit-tracker/internal/logger"
)

// ValidationError reports missing or invalid caller input.  It is never
// retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrHabitNotFound is returned when an operation needs a habit that
	// does not exist.  Find and delete report misses as booleans instead.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrUserNotFound is returned when an operation needs a user that does
	// not exist.
	ErrUserNotFound = errors.New("user not found")
)

// StoreError wraps a connectivity or query failure from the store.  The
// core does not retry: an accumulate write replayed blindly would count
// twice.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr logs err and wraps it as a StoreError.
func storeErr(op string, err error) error {
	logger.Error("store operation failed", "op", op, "error", err)
	return &StoreError{Op: op, Err: err}
}
