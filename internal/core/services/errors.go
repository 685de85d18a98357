package services

import (
	"errors"
	"fmt"
)

// wrapAs annotates err and guarantees it matches sentinel with errors.Is.
func wrapAs(sentinel error, msg string, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, err)
}
