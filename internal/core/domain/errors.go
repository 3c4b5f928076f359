package domain

import "fmt"

// ValidationError marks malformed input, caught before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError marks a ticket whose state changed concurrently, was already
// claimed, or is not owned by the acting officer. Safe to retry after
// re-reading state.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// Conflictf builds a ConflictError.
func Conflictf(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError marks an officer at max concurrent tickets or a service at
// its daily quota. Not retryable until capacity frees.
type CapacityError struct {
	Msg string
}

func (e *CapacityError) Error() string {
	return e.Msg
}

// Capacityf builds a CapacityError.
func Capacityf(format string, args ...interface{}) error {
	return &CapacityError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a referenced ticket, service, officer, or user that
// does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}
