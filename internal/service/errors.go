package service

import "errors"

var (
	// ErrValidation matches every ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	ErrNotFound      = errors.New("not found")
	ErrUserNotFound  = &notFoundError{msg: "User not found."}
	ErrEventNotFound = &notFoundError{msg: "Event not found."}

	ErrInvalidCredentials = errors.New("Invalid credentials.")
	ErrNoSession          = errors.New("no active session")

	// ErrEventDeleted is returned for any change to a deleted event.
	ErrEventDeleted = &ValidationError{Message: "Event was deleted and can no longer be changed."}
)

// ValidationError is an input rejection whose message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
