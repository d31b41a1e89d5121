package errx

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure into the assistant's error taxonomy. Kinds are
// stable machine-readable identifiers; the Message carried alongside is the
// user-facing text.
type Kind string

const (
	KindExtraction              Kind = "extraction_error"
	KindQuotaExceeded           Kind = "quota_exceeded"
	KindPermissionDenied        Kind = "permission_denied"
	KindProvision               Kind = "provision_error"
	KindServiceNotFound         Kind = "service_not_found"
	KindPersistence             Kind = "persistence_error"
	KindCollaboratorTimeout     Kind = "collaborator_timeout"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// PersistenceErrorMessage describes conversation storage failures.
	PersistenceErrorMessage = "conversation storage operation failed"
	// PersistenceNotFoundMessage describes a missing conversation record.
	PersistenceNotFoundMessage = "conversation record not found"
)

// Error wraps an underlying error with a taxonomy Kind and a safe message.
// ResourceID is set when a failed operation may have left a partially-created
// remote resource behind; it gives the caller enough detail for manual cleanup.
type Error struct {
	Err        error
	Kind       Kind
	Message    string
	ResourceID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches either another *Error with the same Kind or the wrapped error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to *Error or to the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// New creates a new Error with the provided taxonomy kind and message.
func New(err error, kind Kind, message string) *Error {
	return &Error{Err: err, Kind: kind, Message: message}
}

// Newf creates a new Error with a formatted message and no wrapped cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or an empty Kind when err does not
// carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// WrapCollaborator maps a collaborator call failure to the taxonomy: context
// deadline and cancellation become collaborator_timeout, everything else
// collaborator_unavailable. Errors already carrying a Kind pass through.
func WrapCollaborator(err error, collaborator string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(err, KindCollaboratorTimeout, fmt.Sprintf("%s call timed out", collaborator))
	}
	return New(err, KindCollaboratorUnavailable, fmt.Sprintf("%s is unreachable", collaborator))
}
