package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a project or file that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a write that collides with existing state, such as a
// duplicate path or a replace already running for the project.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StoreError wraps a failure of the relational store. The cause is for logs,
// not for clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TransactionAbortedError reports a bulk replace that was rolled back.
type TransactionAbortedError struct {
	ProjectID string
	Err       error
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("replace files for project %s rolled back: %v", e.ProjectID, e.Err)
}

func (e *TransactionAbortedError) Unwrap() error { return e.Err }

// TimeoutError reports a store call that hit its deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out", e.Op)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// classify turns a raw store error into the service error taxonomy.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Op: op}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Message: "a file with this path already exists in the project"}
	default:
		return &StoreError{Op: op, Err: err}
	}
}
