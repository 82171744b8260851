package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownAction    = errors.New("unknown action")
)

func NewInternal(format string, a ...interface{}) error {
	return fmt.Errorf("INTERNAL: "+format, a...)
}

func NewNotFound(format string, a ...interface{}) error {
	return fmt.Errorf("NOT FOUND: "+format+": %w", append(a, ErrNotFound)...)
}

func NewConflict(format string, a ...interface{}) error {
	return fmt.Errorf("CONFLICT: "+format+": %w", append(a, ErrConflict)...)
}

func NewValidation(format string, a ...interface{}) error {
	return fmt.Errorf("VALIDATION: "+format+": %w", append(a, ErrValidation)...)
}

func NewPermissionDenied(format string, a ...interface{}) error {
	return fmt.Errorf("FORBIDDEN: "+format+": %w", append(a, ErrPermissionDenied)...)
}

func NewUnknownAction(format string, a ...interface{}) error {
	return fmt.Errorf("UNKNOWN ACTION: "+format+": %w", append(a, ErrUnknownAction)...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsUnknownAction(err error) bool {
	return errors.Is(err, ErrUnknownAction)
}

func IsInternal(err error) bool {
	return err != nil &&
		!IsNotFound(err) &&
		!IsConflict(err) &&
		!IsValidation(err) &&
		!IsPermissionDenied(err) &&
		!IsUnknownAction(err)
}
