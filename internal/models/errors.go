package models

import (
	"errors"
	"fmt"
)

// TransientError is implemented by errors that may succeed on retry
type TransientError interface {
	error
	IsTransient() bool
}

// IsTransient reports whether any error in err's chain declares itself transient
func IsTransient(err error) bool {
	var te TransientError
	if errors.As(err, &te) {
		return te.IsTransient()
	}
	return false
}

// ValidationError represents a rejected request or invalid input
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
