package errors

import (
	"errors"
	"fmt"
)

// Application-specific error types
type ErrType string

const (
	ErrTypeValidation  ErrType = "VALIDATION"
	ErrTypePersistence ErrType = "PERSISTENCE"
	ErrTypeRemote      ErrType = "REMOTE"
	ErrTypeConfig      ErrType = "CONFIG"
)

type AppError struct {
	Type         ErrType
	Message      string
	Cause        error
	UserFriendly string // User-facing error message
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Constructor functions
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:         ErrTypeValidation,
		Message:      message,
		UserFriendly: message,
	}
}

func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:         ErrTypePersistence,
		Message:      message,
		Cause:        cause,
		UserFriendly: "Could not save the status to disk; it stays active for this session only.",
	}
}

func NewRemoteError(message string, cause error) *AppError {
	return &AppError{
		Type:         ErrTypeRemote,
		Message:      message,
		Cause:        cause,
		UserFriendly: "Discord rejected the update; it will be retried automatically.",
	}
}

func NewConfigError(message string, cause error) *AppError {
	return &AppError{
		Type:         ErrTypeConfig,
		Message:      message,
		Cause:        cause,
		UserFriendly: "Configuration error occurred",
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, t ErrType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
