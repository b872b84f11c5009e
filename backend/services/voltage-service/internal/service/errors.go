package service

import (
	"errors"
	"fmt"
)

// Error categories. Handlers map them to transport status codes with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)

// Session lifecycle errors.
var (
	ErrSessionNotFound      = fmt.Errorf("%w: session not found", ErrNotFound)
	ErrOpenSessionNotFound  = fmt.Errorf("%w: no open session for device", ErrNotFound)
	ErrDuplicateSession     = fmt.Errorf("%w: session id already in use", ErrConflict)
	ErrSessionAlreadyClosed = fmt.Errorf("%w: session already closed", ErrConflict)
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
