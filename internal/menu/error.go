package menu

import (
	"errors"
	"fmt"
)

var (
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrInvalidCategory    = errors.New("invalid menu category")
	ErrStorageUnavailable = errors.New("menu storage unavailable")
)

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
