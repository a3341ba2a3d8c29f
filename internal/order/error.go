package order

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound        = errors.New("menu item not found")
	ErrItemUnavailable     = errors.New("menu item unavailable")
	ErrValidation          = errors.New("validation failed")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrIdentifierCollision = errors.New("order identifier collision")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrTransitionConflict  = errors.New("order changed concurrently")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
