package visitcontent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrNotFound indicates a record was not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition indicates an event status change that is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus indicates an unknown event status
	ErrInvalidStatus = errors.New("invalid event status")

	// ErrRevisionConflict indicates the record changed since it was read
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrAccessRestricted indicates an action was attempted without an identity
	ErrAccessRestricted = errors.New("access restricted: sign in required")

	// ErrConfirmationRequired indicates an irreversible action was not confirmed
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrMalformedCandidate indicates an ingested record could not be decoded
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrUnknownSource indicates no ingester is registered under a name
	ErrUnknownSource = errors.New("unknown ingestion source")

	// ErrUploadFailed indicates the asset store rejected a write
	ErrUploadFailed = errors.New("upload failed")
)

// UploadHint is shown alongside upload failures.
const UploadHint = "ensure the asset bucket exists and allows public reads"

// ValidationError reports an input field that failed a check.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UploadError represents a write the asset store refused. The message keeps
// the remote diagnostic so an operator can fix the storage setup.
type UploadError struct {
	Backend string
	Key     string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s to %s failed: %v; %s", e.Key, e.Backend, e.Err, UploadHint)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUploadFailed) match any UploadError.
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

// Hint returns the remediation text for the operator.
func (e *UploadError) Hint() string {
	return UploadHint
}

// StoreError represents a content store failure. It is never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// EventError represents an error related to a single event
type EventError struct {
	EventID uuid.UUID
	Op      string
	Err     error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event operation %s failed for event %s: %v", e.Op, e.EventID, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the operator can simply re-trigger the action.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// storeErr wraps backend failures, leaving domain sentinels untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRevisionConflict) ||
		errors.Is(err, ErrInvalidTransition) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
