package workflow

import "errors"

var (
	// ErrUnauthorized is returned when the acting user lacks the capability for an action
	ErrUnauthorized = errors.New("action not permitted for this user")

	// ErrConflict is returned when an optimistic-concurrency update collides;
	// the caller must reload the records and retry
	ErrConflict = errors.New("record changed since it was loaded")

	// ErrNotConfigured is returned when no active routing entry exists for the next level
	ErrNotConfigured = errors.New("no approver configured")

	// ErrNotFound is returned when the workflow or subject record is missing
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyTerminal is returned when a transition is attempted on a record
	// already in a terminal status
	ErrAlreadyTerminal = errors.New("workflow already in a terminal status")

	// ErrInvalidTransition is returned when a trigger is not permitted in the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput is returned when a submission is malformed
	ErrInvalidInput = errors.New("invalid input")
)
